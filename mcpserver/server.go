package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"net/url"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/viant/metavec/catalog"
	"github.com/viant/metavec/extquery"
	"github.com/viant/metavec/internal/apperrors"
	"github.com/viant/metavec/resolver"
	"github.com/viant/metavec/vecsync"
)

const (
	serverName = "metavec"

	tablesScheme = "tables://"
)

// Backend is the set of operations the tools expose. *service.Service implements it.
type Backend interface {
	CreateEntry(ctx context.Context, entry catalog.Entry) (int64, error)
	ListEntries(ctx context.Context, limit, offset int) ([]catalog.Entry, error)
	UpdateEntry(ctx context.Context, tableName, description string, columns []catalog.Column) error
	DeleteEntry(ctx context.Context, tableName string) error
	SyncIndex(ctx context.Context) (*vecsync.Result, error)
	SyncStatus(ctx context.Context) (*vecsync.Status, error)
	ResolveTable(ctx context.Context, prompt string) (*resolver.Match, error)
	Query(ctx context.Context, query string) ([]extquery.Row, error)
}

// Server is the MCP tool server.
type Server struct {
	backend Backend
	mcp     *server.MCPServer
}

// New registers every tool and the tables resource template.
func New(backend Backend, version string) *Server {
	s := &Server{
		backend: backend,
		mcp: server.NewMCPServer(
			serverName,
			version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(tablesScheme+"{prompt}", "relevant_table",
			mcp.WithTemplateDescription("Catalog entry (table name, description and columns) most relevant to the prompt."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.readTables,
	)
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves JSON-RPC over in/out until ctx is done or in is closed.
// Protocol errors go to stderr so out carries only protocol messages.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(os.Stderr, serverName+": ", stdlog.LstdFlags))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	columnSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column_name": map[string]any{"type": "string", "description": "Column name"},
			"data_type":   map[string]any{"type": "string", "description": "Column data type"},
			"description": map[string]any{"type": "string", "description": "What the column holds"},
		},
		"required": []string{"column_name", "data_type"},
	}

	s.mcp.AddTool(mcp.NewTool("metadata_create",
		mcp.WithDescription("Create a table metadata entry in the catalog."),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Name of the table")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Overview of the table")),
		mcp.WithArray("metadatas", mcp.Description("Columns of the table"), mcp.Items(columnSchema)),
	), s.metadataCreate)

	s.mcp.AddTool(mcp.NewTool("metadata_get",
		mcp.WithDescription("List catalog entries with pagination."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return"), mcp.DefaultNumber(catalog.DefaultLimit)),
		mcp.WithNumber("offset", mcp.Description("Number of entries to skip"), mcp.DefaultNumber(0)),
	), s.metadataGet)

	s.mcp.AddTool(mcp.NewTool("metadata_update",
		mcp.WithDescription("Replace the description and columns of a catalog entry."),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Name of the table to update")),
		mcp.WithString("description", mcp.Required(), mcp.Description("New overview of the table")),
		mcp.WithArray("metadatas", mcp.Description("New columns of the table"), mcp.Items(columnSchema)),
	), s.metadataUpdate)

	s.mcp.AddTool(mcp.NewTool("metadata_delete",
		mcp.WithDescription("Delete a catalog entry by table name."),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Name of the table to delete")),
	), s.metadataDelete)

	s.mcp.AddTool(mcp.NewTool("sync_metadata",
		mcp.WithDescription("Rebuild the vector index from the catalog."),
	), s.syncMetadata)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Report the last index sync and pending catalog changes."),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("resolve_table",
		mcp.WithDescription("Return the catalog entry most relevant to a natural-language prompt."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("User prompt")),
	), s.resolveTable)

	s.mcp.AddTool(mcp.NewTool("data_get",
		mcp.WithDescription("Run a SQL query against the external database and return the rows."),
		mcp.WithString("query", mcp.Required(), mcp.Description("SQL query generated from the user prompt")),
	), s.dataGet)
}

type entryArgs struct {
	TableName   string           `json:"table_name"`
	Description string           `json:"description"`
	Metadatas   []catalog.Column `json:"metadatas"`
}

func bindArgs(req mcp.CallToolRequest, target any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (s *Server) metadataCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args entryArgs
	if err := bindArgs(req, &args); err != nil {
		return invalidArgs(err), nil
	}
	if _, err := s.backend.CreateEntry(ctx, catalog.Entry{TableName: args.TableName, Description: args.Description, Columns: args.Metadatas}); err != nil {
		return toolError(ctx, req, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully insert data with name %s", args.TableName)), nil
}

func (s *Server) metadataGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", catalog.DefaultLimit)
	offset := req.GetInt("offset", 0)
	entries, err := s.backend.ListEntries(ctx, limit, offset)
	if err != nil {
		return toolError(ctx, req, err), nil
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	return jsonResult(entries)
}

func (s *Server) metadataUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args entryArgs
	if err := bindArgs(req, &args); err != nil {
		return invalidArgs(err), nil
	}
	if err := s.backend.UpdateEntry(ctx, args.TableName, args.Description, args.Metadatas); err != nil {
		return toolError(ctx, req, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully update data with name %s", args.TableName)), nil
}

func (s *Server) metadataDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := req.RequireString("table_name")
	if err != nil {
		return invalidArgs(err), nil
	}
	if err := s.backend.DeleteEntry(ctx, tableName); err != nil {
		return toolError(ctx, req, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully delete data with name %s", tableName)), nil
}

func (s *Server) syncMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.backend.SyncIndex(ctx)
	if err != nil {
		return toolError(ctx, req, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully sync metadata: %d entries, %d vectors, generation %s",
		result.Entries, result.Records, result.Generation)), nil
}

func (s *Server) syncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.backend.SyncStatus(ctx)
	if err != nil {
		return toolError(ctx, req, err), nil
	}
	return jsonResult(status)
}

func (s *Server) resolveTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return invalidArgs(err), nil
	}
	match, err := s.backend.ResolveTable(ctx, prompt)
	if err != nil {
		return toolError(ctx, req, err), nil
	}
	return jsonResult(match.Entry)
}

func (s *Server) dataGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return invalidArgs(err), nil
	}
	rows, err := s.backend.Query(ctx, query)
	if err != nil {
		return toolError(ctx, req, err), nil
	}
	return jsonResult(rows)
}

func (s *Server) readTables(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	prompt, err := promptFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	match, err := s.backend.ResolveTable(ctx, prompt)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("uri", req.Params.URI).Msg("resource read failed")
		return nil, fmt.Errorf("%s: %s", apperrors.KindOf(err), apperrors.Message(err))
	}
	data, err := json.Marshal(match.Entry)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func promptFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, tablesScheme) {
		return "", fmt.Errorf("unsupported resource uri: %s", uri)
	}
	prompt, err := url.PathUnescape(strings.TrimPrefix(uri, tablesScheme))
	if err != nil {
		return "", fmt.Errorf("invalid resource uri %s: %w", uri, err)
	}
	return prompt, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func invalidArgs(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperrors.KindInvalidInput, err))
}

// toolError reports err as a tool-level error prefixed with its kind.
func toolError(ctx context.Context, req mcp.CallToolRequest, err error) *mcp.CallToolResult {
	kind := apperrors.KindOf(err)
	log.Ctx(ctx).Warn().Str("tool", req.Params.Name).Str("kind", kind.String()).Err(err).Msg("tool call failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", kind, apperrors.Message(err)))
}

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	// DefaultLimit is the page size used when List is called with limit 0.
	DefaultLimit = 10
)

// Store is the catalog contract used by the sync engine, the resolver and the tool surface.
type Store interface {
	Create(ctx context.Context, entry Entry) (int64, error)
	List(ctx context.Context, limit, offset int) ([]Entry, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	Update(ctx context.Context, tableName, description string, columns []Column) error
	Delete(ctx context.Context, tableName string) error
	ListAll(ctx context.Context) ([]Entry, error)
	Snapshot(ctx context.Context) ([]Entry, int64, error)
	ChangesSince(ctx context.Context, seq int64) (int64, int64, error)
}

// SQLiteStore implements Store on a database/sql handle opened by the engine package.
type SQLiteStore struct {
	db       *sql.DB
	table    string
	logTable string
	validate *validator.Validate
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithTables overrides the catalog and change-log table names.
func WithTables(table, logTable string) Option {
	return func(s *SQLiteStore) {
		if table != "" {
			s.table = table
		}
		if logTable != "" {
			s.logTable = logTable
		}
	}
}

// NewSQLiteStore creates the schema when missing and returns a ready store.
func NewSQLiteStore(ctx context.Context, db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	if db == nil {
		return nil, ErrCatalog.New("catalog: nil database")
	}
	s := &SQLiteStore{
		db:       db,
		table:    DefaultTable,
		logTable: DefaultChangeLogTable,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := EnsureSchema(ctx, db, s.table, s.logTable); err != nil {
		return nil, err
	}
	return s, nil
}

// Create validates and inserts a new entry, returning its assigned id.
func (s *SQLiteStore) Create(ctx context.Context, entry Entry) (int64, error) {
	if err := s.validateEntry(&entry); err != nil {
		return 0, err
	}
	payload, err := encodeColumns(entry.Columns)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (table_name, description, metadata) VALUES (?, ?, ?)`,
		entry.TableName, entry.Description, payload)
	if err != nil {
		return 0, ErrCatalog.MsgErr("failed to insert catalog entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, ErrCatalog.MsgErr("failed to read inserted id", err)
	}
	log.Ctx(ctx).Debug().Str("op", "catalog.create").Str("table_name", entry.TableName).Int64("id", id).Msg("catalog entry created")
	return id, nil
}

// List returns a page of entries ordered by id. A zero limit means DefaultLimit.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidInput.Msg(fmt.Sprintf("invalid pagination: limit=%d offset=%d", limit, offset))
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	return s.query(ctx, s.db,
		`SELECT id, table_name, description, metadata FROM `+s.table+` ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
}

// Get returns the entry with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Entry, error) {
	entries, err := s.query(ctx, s.db,
		`SELECT id, table_name, description, metadata FROM `+s.table+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound.Msg(fmt.Sprintf("catalog entry %d not found", id))
	}
	return &entries[0], nil
}

// Update replaces description and columns of every entry named tableName.
func (s *SQLiteStore) Update(ctx context.Context, tableName, description string, columns []Column) error {
	entry := Entry{TableName: tableName, Description: description, Columns: columns}
	if err := s.validateEntry(&entry); err != nil {
		return err
	}
	payload, err := encodeColumns(columns)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.table+` SET description = ?, metadata = ? WHERE table_name = ?`,
		description, payload, tableName)
	if err != nil {
		return ErrCatalog.MsgErr("failed to update catalog entry", err)
	}
	return s.expectRows(ctx, res, "catalog.update", tableName)
}

// Delete removes every entry named tableName.
func (s *SQLiteStore) Delete(ctx context.Context, tableName string) error {
	if strings.TrimSpace(tableName) == "" {
		return ErrInvalidInput.Msg("table_name is required")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE table_name = ?`, tableName)
	if err != nil {
		return ErrCatalog.MsgErr("failed to delete catalog entry", err)
	}
	return s.expectRows(ctx, res, "catalog.delete", tableName)
}

// ListAll returns every entry ordered by id.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, s.db, `SELECT id, table_name, description, metadata FROM `+s.table+` ORDER BY id`)
}

// Snapshot returns every entry together with the change-log high-water mark, read in
// one transaction so the sequence matches the entries.
func (s *SQLiteStore) Snapshot(ctx context.Context) ([]Entry, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, ErrCatalog.MsgErr("failed to begin snapshot", err)
	}
	defer func() { _ = tx.Rollback() }()
	entries, err := s.query(ctx, tx, `SELECT id, table_name, description, metadata FROM `+s.table+` ORDER BY id`)
	if err != nil {
		return nil, 0, err
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM `+s.logTable).Scan(&seq); err != nil {
		return nil, 0, ErrCatalog.MsgErr("failed to read change log", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, ErrCatalog.MsgErr("failed to commit snapshot", err)
	}
	return entries, seq, nil
}

// ChangesSince reports how many catalog mutations were logged after seq and the
// latest sequence number.
func (s *SQLiteStore) ChangesSince(ctx context.Context, seq int64) (int64, int64, error) {
	var count, last int64
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM `+s.logTable+` WHERE seq > ?), (SELECT COALESCE(MAX(seq), 0) FROM `+s.logTable+`)`,
		seq).Scan(&count, &last)
	if err != nil {
		return 0, 0, ErrCatalog.MsgErr("failed to read change log", err)
	}
	return count, last, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) query(ctx context.Context, q queryer, query string, args ...any) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ErrCatalog.MsgErr("failed to query catalog", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.ID, &e.TableName, &e.Description, &payload); err != nil {
			return nil, ErrCatalog.MsgErr("failed to scan catalog row", err)
		}
		if e.Columns, err = decodeColumns(payload); err != nil {
			return nil, ErrCatalog.MsgErr(fmt.Sprintf("invalid column metadata for %s", e.TableName), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrCatalog.MsgErr("failed to iterate catalog rows", err)
	}
	return out, nil
}

func (s *SQLiteStore) expectRows(ctx context.Context, res sql.Result, op, tableName string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return ErrCatalog.MsgErr("failed to read affected rows", err)
	}
	if n == 0 {
		return ErrNotFound.Msg(fmt.Sprintf("no catalog entry for table %q", tableName))
	}
	log.Ctx(ctx).Debug().Str("op", op).Str("table_name", tableName).Int64("rows", n).Msg("catalog entry changed")
	return nil
}

func (s *SQLiteStore) validateEntry(entry *Entry) error {
	if err := s.validate.Struct(entry); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return ErrInvalidInput.Msg("invalid catalog entry: " + strings.Join(fields, ", "))
		}
		return ErrInvalidInput.MsgErr("invalid catalog entry", err)
	}
	return nil
}

func encodeColumns(columns []Column) (string, error) {
	if columns == nil {
		columns = []Column{}
	}
	data, err := json.Marshal(columns)
	if err != nil {
		return "", ErrInvalidInput.MsgErr("failed to encode columns", err)
	}
	return string(data), nil
}

// decodeColumns accepts a JSON array of column objects and, for rows written by older
// tooling, an array of JSON-encoded column strings.
func decodeColumns(payload string) ([]Column, error) {
	if strings.TrimSpace(payload) == "" {
		return []Column{}, nil
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("metadata is not valid JSON")
	}
	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("metadata is not a JSON array")
	}
	columns := []Column{}
	var decodeErr error
	parsed.ForEach(func(_, item gjson.Result) bool {
		raw := item.Raw
		if item.Type == gjson.String {
			raw = item.String()
		}
		var c Column
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			decodeErr = err
			return false
		}
		columns = append(columns, c)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return columns, nil
}

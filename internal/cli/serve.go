package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/metavec/mcpserver"
	"github.com/viant/metavec/service"
)

func (a *app) serveCmd() *cobra.Command {
	var transport, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio or HTTP",
		Long: `Serve the catalog, sync, resolve and query tools to MCP clients.

Examples:
  # stdio transport, for MCP clients that spawn the server
  metavec serve

  # HTTP transport on POST /mcp
  metavec serve --transport http --addr 127.0.0.1:8627`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport == "" {
				transport = a.cfg.MCP.Transport
			}
			if addr == "" {
				addr = a.cfg.MCP.Addr
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				srv := mcpserver.New(svc, a.version)
				if transport == "http" {
					return srv.ListenAndServe(ctx, addr)
				}
				return srv.ServeStdio(ctx, os.Stdin, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "Transport: stdio or http (default from config)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")
	return cmd
}

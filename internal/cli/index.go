package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/metavec/service"
)

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the vector index from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				result, err := svc.SyncIndex(ctx)
				if err != nil {
					return err
				}
				if a.output == outputText {
					return a.printOK(cmd.OutOrStdout(), fmt.Sprintf("Synced %d entries into %d vectors (generation %s, %s)",
						result.Entries, result.Records, result.Generation, result.Duration))
				}
				return a.print(cmd.OutOrStdout(), result)
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync and pending catalog changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				status, err := svc.SyncStatus(ctx)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), status)
			})
		},
	}
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <prompt>",
		Short: "Find the catalog entry most relevant to a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				match, err := svc.ResolveTable(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), match)
			})
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run SQL against the external database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				rows, err := svc.Query(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), rows)
			})
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/viant/metavec/catalog"
	"github.com/viant/metavec/service"
)

func (a *app) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage table metadata entries",
	}
	cmd.AddCommand(a.catalogCreateCmd(), a.catalogListCmd(), a.catalogUpdateCmd(), a.catalogDeleteCmd())
	return cmd
}

// entryFlags collects an entry from --file or from individual flags; flags win.
type entryFlags struct {
	file        string
	tableName   string
	description string
	columns     []string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with table_name, description and columns")
	cmd.Flags().StringVar(&f.tableName, "table", "", "Table name")
	cmd.Flags().StringVar(&f.description, "description", "", "Table description")
	cmd.Flags().StringArrayVar(&f.columns, "column", nil, "Column as name:type[:description], repeatable")
}

func (f *entryFlags) entry() (catalog.Entry, error) {
	var entry catalog.Entry
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return entry, err
		}
		if err := yaml.Unmarshal(data, &entry); err != nil {
			return entry, fmt.Errorf("failed to parse %s: %w", f.file, err)
		}
	}
	if f.tableName != "" {
		entry.TableName = f.tableName
	}
	if f.description != "" {
		entry.Description = f.description
	}
	for _, raw := range f.columns {
		column, err := parseColumn(raw)
		if err != nil {
			return entry, err
		}
		entry.Columns = append(entry.Columns, column)
	}
	return entry, nil
}

func parseColumn(raw string) (catalog.Column, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return catalog.Column{}, fmt.Errorf("invalid column %q, expected name:type[:description]", raw)
	}
	column := catalog.Column{ColumnName: parts[0], DataType: parts[1]}
	if len(parts) == 3 {
		column.Description = parts[2]
	}
	return column, nil
}

func (a *app) catalogCreateCmd() *cobra.Command {
	var flags entryFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a catalog entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := flags.entry()
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				id, err := svc.CreateEntry(ctx, entry)
				if err != nil {
					return err
				}
				return a.printOK(cmd.OutOrStdout(), fmt.Sprintf("Created %s (id %d)", entry.TableName, id))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) catalogUpdateCmd() *cobra.Command {
	var flags entryFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the description and columns of a catalog entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := flags.entry()
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.UpdateEntry(ctx, entry.TableName, entry.Description, entry.Columns); err != nil {
					return err
				}
				return a.printOK(cmd.OutOrStdout(), fmt.Sprintf("Updated %s", entry.TableName))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) catalogListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				entries, err := svc.ListEntries(ctx, limit, offset)
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []catalog.Entry{}
				}
				return a.print(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "Maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	return cmd
}

func (a *app) catalogDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table_name>",
		Short: "Delete a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.DeleteEntry(ctx, args[0]); err != nil {
					return err
				}
				return a.printOK(cmd.OutOrStdout(), fmt.Sprintf("Deleted %s", args[0]))
			})
		},
	}
}

// Package cli implements the metavec command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/viant/metavec/config"
	"github.com/viant/metavec/internal/apperrors"
	"github.com/viant/metavec/internal/logtrace"
	"github.com/viant/metavec/service"
)

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// app carries the global flags and the loaded configuration.
type app struct {
	version    string
	configFile string
	envFile    string
	output     string
	logLevel   string
	cfg        *config.Config
	// serviceOptions are applied when commands open the service.
	serviceOptions []service.Option
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "metavec [command] [flags]",
		Short: "Metadata vector index and table retrieval service",
		Long: `metavec keeps a catalog of table metadata, indexes it as embeddings and
resolves natural-language prompts to the most relevant table.

Examples:
  # Register a table
  metavec catalog create --table orders --description "customer orders" --column order_id:NUMBER:key

  # Rebuild the vector index
  metavec sync

  # Find the table for a prompt
  metavec resolve "total order value last month"

  # Serve MCP tools over stdio
  metavec serve`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a TOML configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to a .env file")
	flags.StringVarP(&a.output, "output", "o", outputText, "Output format: text, json or yaml")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override")

	root.AddCommand(
		a.versionCmd(),
		a.serveCmd(),
		a.syncCmd(),
		a.statusCmd(),
		a.resolveCmd(),
		a.catalogCmd(),
		a.queryCmd(),
	)
	return root
}

func (a *app) preRun(cmd *cobra.Command, args []string) error {
	switch a.output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", a.output)
	}
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.configFile, a.envFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logtrace.InitLogger(cfg.Log.Level, cfg.Log.Pretty)
	a.cfg = cfg
	return nil
}

// withService opens the service for the duration of fn.
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx := log.Logger.WithContext(cmd.Context())
	svc, err := service.New(ctx, a.cfg, a.serviceOptions...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			log.Ctx(ctx).Warn().Err(cerr).Msg("failed to close service")
		}
	}()
	return fn(ctx, svc)
}

// print writes v in the selected format; text falls back to YAML for structured values.
func (a *app) print(w io.Writer, v any) error {
	switch a.output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
}

// printOK writes a confirmation message, or {"message": msg} for json and yaml output.
func (a *app) printOK(w io.Writer, msg string) error {
	if a.output == outputText {
		_, err := okLabel.Fprintln(w, msg)
		return err
	}
	return a.print(w, map[string]string{"message": msg})
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.output == outputText {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "metavec %s\n", a.version)
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]string{"version": a.version})
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		return 1
	}
	return 0
}

func reportError(w io.Writer, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindUnknown || errors.Is(err, context.Canceled) {
		errorLabel.Fprintf(w, "Error: %v\n", err)
		return
	}
	errorLabel.Fprintf(w, "Error [%s]: %s\n", kind, apperrors.Message(err))
}

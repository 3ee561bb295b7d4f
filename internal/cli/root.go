// Package cli implements the trendload command line: the pipeline run and
// the read-only summary, export, history and config commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/trendload/internal/config"
	"github.com/JonMunkholm/trendload/internal/core"
	"github.com/JonMunkholm/trendload/internal/logging"
	"github.com/JonMunkholm/trendload/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"store-path":         "store_path",
	"input-dir":          "input_directory",
	"export-path":        "export_path",
	"encoding":           "source_encoding",
	"sentinel-threshold": "sentinel_threshold",
	"metrics-path":       "metrics_path",
}

// NewRootCommand creates the root command for the trendload CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	runOpts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "trendload",
		Short: "Load yearly YouTube trending aggregates into a relational store",
		Long: `trendload reads yearly trending_by_time_YYYY.csv files, normalizes them,
appends each year not yet present to the trending_by_time table, prints a
per-date summary and exports the whole table to CSV.

Without a subcommand it behaves like "trendload run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, runOpts)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (default $TRENDLOAD_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().String("store-path", "", "SQLite database file (overrides store_path)")

	// Local flags, so subcommands keep their own sets.
	addRunFlags(cmd, runOpts)

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Failures not already reported by a command are written in the selected
// format: JSON envelopes go to stdout, text to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{Format: "text"}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	if !isReported(err) {
		f := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
		if opts.Format == "json" {
			f.Writer = stdout
		}
		_ = f.Error(core.ErrorCode(err), err.Error(), nil)
	}
	return GetExitCode(err)
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig layers the changed flags of cmd over the file and environment
// configuration and sets up logging on the command's error stream.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	if opts.Verbose {
		overrides["log_level"] = "debug"
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: opts.ConfigFile, Overrides: overrides})
	if err != nil {
		return nil, WrapExitError(ExitFatal, "load configuration", err)
	}

	logging.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// openStore connects to the configured backend and ensures the schema.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s, err := store.Open(ctx, store.Options{
		Path:     cfg.StorePath,
		URL:      cfg.DatabaseURL,
		MaxConns: int32(cfg.DatabaseMaxConns),
	})
	if err != nil {
		return nil, WrapExitError(ExitFatal, "open store", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, WrapExitError(ExitFatal, "prepare schema", err)
	}
	return s, nil
}

// reportFailure writes err through f and returns it as an already reported
// ExitError.
func reportFailure(f *OutputFormatter, code int, message string, err error) error {
	_ = f.Error(core.ErrorCode(err), core.FormatUserError(err), err.Error())
	exitErr := WrapExitError(code, message, err)
	exitErr.Reported = true
	return exitErr
}

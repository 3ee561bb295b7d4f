package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/trendload/internal/config"
	"github.com/JonMunkholm/trendload/internal/core"
	"github.com/JonMunkholm/trendload/internal/metrics"
	"github.com/JonMunkholm/trendload/internal/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	File string

	// Bound for help output only; loadConfig reads changed values through
	// flagKeys.
	InputDir          string
	ExportPath        string
	Encoding          string
	SentinelThreshold float64
	MetricsPath       string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load new yearly sources, summarize and export",
		Long: `Load every *.csv file in the input directory, or a single --file.

Each source's year is taken from its name (trending_by_time_YYYY.csv). Years
that already have records in the store are skipped. After loading, the
per-date summary is printed and the whole table is exported to CSV.

Exit status: 0 when every source loaded (or none were found) and the export
succeeded, 1 when some source was skipped or failed, 2 when the run was
aborted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, rootOpts, opts)
		},
	}

	addRunFlags(cmd, opts)

	return cmd
}

// addRunFlags registers the pipeline flags on cmd. The root command shares
// them so that "trendload -f FILE" works without the run subcommand.
func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "load a single source file instead of the input directory")
	cmd.Flags().StringVar(&opts.InputDir, "input-dir", "", "directory holding the yearly sources (overrides input_directory)")
	cmd.Flags().StringVar(&opts.ExportPath, "export-path", "", "CSV export destination (overrides export_path)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "source encoding: latin1 or utf-8 (overrides source_encoding)")
	cmd.Flags().Float64Var(&opts.SentinelThreshold, "sentinel-threshold", 0, "drop rows with at least this share of '*' cells (overrides sentinel_threshold)")
	cmd.Flags().StringVar(&opts.MetricsPath, "metrics-path", "", "Prometheus textfile destination (overrides metrics_path)")
}

func runPipeline(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) error {
	ctx := cmd.Context()
	formatter := newFormatter(cmd, rootOpts)

	cfg, err := loadConfig(cmd, rootOpts)
	if err != nil {
		return err
	}

	sources, err := resolveSources(cfg, opts.File)
	if err != nil {
		return WrapExitError(ExitFatal, "discover sources", err)
	}
	formatter.VerboseLog("Found %d source(s)", len(sources))

	enc, err := core.LookupEncoding(cfg.SourceEncoding)
	if err != nil {
		return WrapExitError(ExitFatal, "source encoding", err)
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return reportFailure(formatter, GetExitCode(err), "open store", err)
	}
	defer s.Close()

	recorder := metrics.NewRecorder()
	loader := core.NewLoader(core.NewNormalizer(cfg.SentinelThreshold), enc)
	orch := pipeline.New(s, loader, pipeline.Options{
		ExportPath: cfg.ExportPath,
		Recorder:   recorder,
	})

	summary, runErr := orch.Run(ctx, sources)

	if err := recorder.WriteTextfile(cfg.MetricsPath); err != nil {
		slog.Warn("failed to write metrics textfile", "path", cfg.MetricsPath, "error", err)
	}

	code := summary.ExitCode()
	if runErr != nil {
		code = ExitFatal
	}

	if code == ExitSuccess {
		return formatter.Render(summary, func(w io.Writer) error { return writeRunText(w, summary) })
	}

	if formatter.Format == "json" {
		_ = formatter.Error(failureCode(summary, runErr), failureMessage(summary, runErr), summary)
	} else if err := writeRunText(formatter.Writer, summary); err != nil {
		return WrapExitError(ExitFatal, "write summary", err)
	}

	exitErr := WrapExitError(code, failureMessage(summary, runErr), runErr)
	exitErr.Reported = true
	return exitErr
}

// writeRunText prints the per-date summary, when the run got that far,
// followed by the per-source outcomes.
func writeRunText(w io.Writer, summary *pipeline.RunSummary) error {
	if summary.Validation != nil {
		if err := summary.Validation.WriteText(w, pipeline.PreviewDates); err != nil {
			return err
		}
	}
	return summary.WriteText(w)
}

// resolveSources returns the single --file source or the discovered ones.
func resolveSources(cfg *config.Config, file string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}
	return pipeline.Discover(cfg.InputDirectory)
}

// failureCode picks the support code describing why a run did not succeed.
// Runs that only skipped sources report PARTIAL.
func failureCode(summary *pipeline.RunSummary, runErr error) string {
	if runErr != nil {
		return core.ErrorCode(runErr)
	}
	for _, r := range summary.Sources {
		if r.Code != "" {
			return r.Code
		}
	}
	return "PARTIAL"
}

func failureMessage(summary *pipeline.RunSummary, runErr error) string {
	if runErr != nil {
		return "run aborted: " + core.FormatUserError(runErr)
	}
	return fmt.Sprintf("%d source(s) skipped, %d failed",
		summary.Count(pipeline.OutcomeSkipped), summary.Count(pipeline.OutcomeFailed))
}

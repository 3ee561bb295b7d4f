package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/trendload/internal/pipeline"
)

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "summary",
		Short:         "Print the number of records per trending date",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, rootOpts, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", pipeline.PreviewDates, "dates to list in text output (0 for all)")

	return cmd
}

func runSummary(cmd *cobra.Command, rootOpts *RootOptions, limit int) error {
	ctx := cmd.Context()
	formatter := newFormatter(cmd, rootOpts)

	cfg, err := loadConfig(cmd, rootOpts)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return reportFailure(formatter, ExitFatal, "open store", err)
	}
	defer s.Close()

	summary, err := pipeline.NewValidator(s).Summarize(ctx)
	if err != nil {
		return reportFailure(formatter, ExitFatal, "summarize", err)
	}

	return formatter.Render(summary, func(w io.Writer) error {
		return summary.WriteText(w, limit)
	})
}

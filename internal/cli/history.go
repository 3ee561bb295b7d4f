package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/trendload/internal/store"
)

// DefaultHistoryLimit is how many loads history lists by default.
const DefaultHistoryLimit = 20

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recent source loads, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultHistoryLimit, "number of loads to list (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, rootOpts *RootOptions, limit int) error {
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

	loads, err := s.LoadHistory(ctx, limit)
	if err != nil {
		return reportFailure(formatter, ExitFatal, "load history", err)
	}
	if loads == nil {
		loads = []store.LoadRecord{}
	}

	return formatter.Render(loads, func(w io.Writer) error {
		return writeHistory(w, loads)
	})
}

func writeHistory(w io.Writer, loads []store.LoadRecord) error {
	if len(loads) == 0 {
		_, err := fmt.Fprintln(w, "No loads recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOADED AT\tSOURCE\tYEAR\tINSERTED\tREJECTED\tRUN ID")
	for _, l := range loads {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			l.LoadedAt.UTC().Format(time.RFC3339), l.Source, l.Year, l.Inserted, l.Rejected, l.RunID)
	}
	return tw.Flush()
}

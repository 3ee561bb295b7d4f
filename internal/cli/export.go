package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/trendload/internal/pipeline"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole trending_by_time table to CSV",
		Long: `Write every record, ordered by record_id, to the export path.

The previous export is replaced atomically; it is left untouched when the
export fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts)
		},
	}

	cmd.Flags().StringP("export-path", "o", "", "CSV export destination (overrides export_path)")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions) error {
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

	res, err := pipeline.NewExporter(s).Export(ctx, cfg.ExportPath)
	if err != nil {
		return reportFailure(formatter, ExitFatal, "export", err)
	}

	return formatter.Render(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Exported %d rows to %s\n", res.Rows, res.Path)
		return err
	})
}

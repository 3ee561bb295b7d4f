package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/trendload/internal/core"
)

// RecordSource is the store scan the Exporter relies on.
type RecordSource interface {
	AllRecords(ctx context.Context) iter.Seq2[core.TrendingRecord, error]
}

// Exporter dumps the whole table to a CSV file.
type Exporter struct {
	store RecordSource
}

// NewExporter creates an Exporter over store.
func NewExporter(store RecordSource) *Exporter {
	return &Exporter{store: store}
}

// ExportAll writes every record, ordered by record_id, to destination and
// returns the number of rows written. Columns follow the table schema.
//
// The file is written next to destination and renamed over it, so readers
// see either the previous export or the complete new one. The parent
// directory must exist. File system failures wrap core.ErrExportWrite; a
// failed store scan is returned as is.
func (e *Exporter) ExportAll(ctx context.Context, destination string) (n int, err error) {
	dir, base := filepath.Split(destination)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return 0, exportFailed("create temp file", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(core.Columns); err != nil {
		return 0, exportFailed("write header", err)
	}

	for rec, scanErr := range e.store.AllRecords(ctx) {
		if scanErr != nil {
			return 0, scanErr
		}
		if err := w.Write(rec.Row()); err != nil {
			return 0, exportFailed("write row", err)
		}
		n++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, exportFailed("flush", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return 0, exportFailed("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, exportFailed("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, exportFailed("close", err)
	}
	if err := os.Rename(tmp.Name(), destination); err != nil {
		return 0, exportFailed("rename", err)
	}

	return n, nil
}

// Export creates the parent directory of destination if needed, then runs
// ExportAll. The result is always non-nil and carries the error code on
// failure.
func (e *Exporter) Export(ctx context.Context, destination string) (*ExportResult, error) {
	res := &ExportResult{Path: destination}

	if dir := filepath.Dir(destination); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res.failed(exportFailed("create export directory", err))
		}
	}

	n, err := e.ExportAll(ctx, destination)
	if err != nil {
		return res.failed(err)
	}
	res.Rows = n
	return res, nil
}

func (r *ExportResult) failed(err error) (*ExportResult, error) {
	r.Error = err.Error()
	r.Code = core.ErrorCode(err)
	return r, err
}

func exportFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrExportWrite, op, err)
}

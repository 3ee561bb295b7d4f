package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/trendload/internal/core"
	"github.com/JonMunkholm/trendload/internal/logging"
	"github.com/JonMunkholm/trendload/internal/metrics"
	"github.com/JonMunkholm/trendload/internal/store"
)

// Options configures an Orchestrator.
type Options struct {
	ExportPath string
	// Recorder receives run metrics. Nil disables them.
	Recorder *metrics.Recorder
	// NewRunID overrides run ID generation. Defaults to a random UUID.
	NewRunID func() string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs the load pipeline over a set of sources.
type Orchestrator struct {
	store     store.Store
	loader    *core.Loader
	guard     *Guard
	validator *Validator
	exporter  *Exporter

	exportPath string
	recorder   *metrics.Recorder
	newRunID   func() string
	now        func() time.Time
}

// New wires the pipeline components around one store handle.
func New(s store.Store, loader *core.Loader, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:      s,
		loader:     loader,
		guard:      NewGuard(s),
		validator:  NewValidator(s),
		exporter:   NewExporter(s),
		exportPath: opts.ExportPath,
		recorder:   opts.Recorder,
		newRunID:   opts.NewRunID,
		now:        opts.Now,
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Discover lists the CSV files directly inside inputDir, sorted by name.
func Discover(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var sources []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		sources = append(sources, filepath.Join(inputDir, e.Name()))
	}
	sort.Strings(sources)
	return sources, nil
}

// Run processes sources in order, then validates and exports once.
//
// The returned summary is never nil. A non-nil error means the run was
// aborted: the store became unreachable, the export could not be written
// or ctx was cancelled. Source-level failures are reported in the summary
// only.
func (o *Orchestrator) Run(ctx context.Context, sources []string) (*RunSummary, error) {
	start := o.now()
	summary := &RunSummary{RunID: o.newRunID(), StartedAt: start.UTC()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.FromContext(ctx)

	defer func() {
		summary.Duration = o.now().Sub(start)
		o.recorder.RunFinished(summary.Duration, o.now())
	}()

	abort := func(err error) (*RunSummary, error) {
		summary.Aborted = core.FormatUserError(err)
		logger.Error("run aborted", "error", err, "code", core.ErrorCode(err))
		return summary, err
	}

	logger.Info("run started", "sources", len(sources))

	if err := o.store.EnsureSchema(ctx); err != nil {
		return abort(err)
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		res, err := o.processSource(ctx, src, summary.RunID)
		if err != nil {
			return abort(err)
		}
		summary.Sources = append(summary.Sources, res)
		o.recorder.SourceFinished(string(res.Outcome), res.Inserted, res.Rejected, res.Dropped)
	}

	validation, err := o.validator.Summarize(ctx)
	if err != nil {
		return abort(err)
	}
	summary.Validation = &validation
	o.recorder.StoreRecords(validation.Total)

	export, err := o.export(ctx)
	summary.Export = export
	if err != nil {
		logger.Error("export failed", "path", export.Path, "error", err, "code", export.Code)
		return summary, err
	}
	o.recorder.Exported(export.Rows)

	logger.Info("run completed",
		"loaded", summary.Count(OutcomeLoaded),
		"skipped", summary.Count(OutcomeSkipped),
		"failed", summary.Count(OutcomeFailed),
		"inserted", summary.Inserted(),
		"exported", export.Rows,
	)
	return summary, nil
}

// processSource runs one source through guard, loader and store. The error
// is non-nil only when the whole run must stop.
func (o *Orchestrator) processSource(ctx context.Context, path, runID string) (SourceResult, error) {
	res := SourceResult{Source: filepath.Base(path)}
	logger := logging.WithFields(ctx, "source", res.Source)

	fail := func(err error) (SourceResult, error) {
		if core.IsFatal(err) {
			return res, err
		}
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		res.Code = core.ErrorCode(err)
		logger.Warn("source failed", "error", err, "code", res.Code)
		return res, nil
	}

	year, err := core.ExtractYear(path)
	if err != nil {
		return fail(err)
	}
	res.Year = year
	logger = logger.With("year", year)

	loaded, err := o.guard.AlreadyLoaded(ctx, year)
	if err != nil {
		return res, err
	}
	if loaded {
		res.Outcome = OutcomeSkipped
		logger.Info("year already loaded, skipping source")
		return res, nil
	}

	batch, err := o.loader.Load(ctx, path)
	if err != nil {
		return fail(err)
	}
	res.Rejected = batch.RejectedCount()
	res.Dropped = batch.Dropped
	res.OffYear = batch.OffYear
	res.RejectCodes = core.Summarize(batch.Rejected)

	for _, re := range batch.Rejected {
		logger.Debug("row rejected", "line", re.Line, "error", re.Err, "code", core.ErrorCode(re))
	}
	if res.Rejected > 0 {
		logger.Warn("rows rejected", "count", res.Rejected, "codes", res.RejectCodes)
	}
	if batch.OffYear > 0 {
		logger.Warn("rows dated outside the source year were kept", "count", batch.OffYear)
	}

	inserted, err := o.store.Append(ctx, batch.Records, store.LoadRecord{
		RunID:    runID,
		Source:   res.Source,
		Year:     year,
		Rejected: res.Rejected,
		LoadedAt: o.now(),
	})
	if err != nil {
		return fail(err)
	}
	res.Outcome = OutcomeLoaded
	res.Inserted = inserted
	logger.Info("source loaded", "inserted", inserted, "rejected", res.Rejected, "dropped", res.Dropped)

	o.logValidation(ctx, logger)
	return res, nil
}

// logValidation logs per-date counts after a load. Failures are logged
// and otherwise ignored.
func (o *Orchestrator) logValidation(ctx context.Context, logger *slog.Logger) {
	v, err := o.validator.Summarize(ctx)
	if err != nil {
		logger.Warn("validation query failed", "error", err)
		return
	}
	for _, dc := range v.Dates {
		logger.Debug("records per date", "date", dc.Date, "count", dc.Count)
	}
}

func (o *Orchestrator) export(ctx context.Context) (*ExportResult, error) {
	res, err := o.exporter.Export(ctx, o.exportPath)
	if err != nil {
		return res, err
	}
	logging.FromContext(ctx).Info("export written", "path", res.Path, "rows", res.Rows)
	return res, nil
}

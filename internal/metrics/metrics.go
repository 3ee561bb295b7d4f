// Package metrics records Prometheus metrics for a pipeline run.
//
// The binary runs once and exits, so metrics are not scraped. They are
// written at the end of a run in the node-exporter textfile format, for a
// textfile collector to pick up.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "trendload"

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder holds the run metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	sources      *prometheus.CounterVec
	rowsInserted prometheus.Counter
	rowsRejected prometheus.Counter
	rowsDropped  prometheus.Counter

	exportRows   prometheus.Gauge
	storeRecords prometheus.Gauge
	runDuration  prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewRecorder creates a Recorder on a private registry, so Go runtime
// metrics are not included.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: defaultNamespace,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.initializeMetrics()
	return r
}

func (r *Recorder) initializeMetrics() {
	auto := promauto.With(r.registry)

	r.sources = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "sources_total",
		Help:      "Sources processed, by outcome (loaded, skipped, failed)",
	}, []string{"outcome"})

	r.rowsInserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rows_inserted_total",
		Help:      "Records appended to the store",
	})
	r.rowsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rows_rejected_total",
		Help:      "Source rows rejected by normalization",
	})
	r.rowsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rows_dropped_total",
		Help:      "Source rows dropped by the sentinel policy",
	})

	r.exportRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "export_rows",
		Help:      "Rows written by the last export",
	})
	r.storeRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "store_records",
		Help:      "Records in the store after the run",
	})
	r.runDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last run",
	})
	r.lastRun = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
}

// SourceFinished records the outcome of one source.
func (r *Recorder) SourceFinished(outcome string, inserted, rejected, dropped int) {
	if r == nil {
		return
	}
	r.sources.WithLabelValues(outcome).Inc()
	r.rowsInserted.Add(float64(inserted))
	r.rowsRejected.Add(float64(rejected))
	r.rowsDropped.Add(float64(dropped))
}

// StoreRecords sets the store's total record count.
func (r *Recorder) StoreRecords(n int64) {
	if r == nil {
		return
	}
	r.storeRecords.Set(float64(n))
}

// Exported records the size of a completed export.
func (r *Recorder) Exported(rows int) {
	if r == nil {
		return
	}
	r.exportRows.Set(float64(rows))
}

// RunFinished records the run duration and completion time.
func (r *Recorder) RunFinished(d time.Duration, at time.Time) {
	if r == nil {
		return
	}
	r.runDuration.Set(d.Seconds())
	r.lastRun.Set(float64(at.Unix()))
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The write is atomic and the parent directory is created if needed.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

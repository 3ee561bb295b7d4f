package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on a fresh registry", t, func() {
		registry := prometheus.NewRegistry()
		r := NewRecorder(WithRegistry(registry))

		So(r.Registry(), ShouldEqual, registry)

		Convey("When a run loads, skips and fails sources", func() {
			r.SourceFinished("loaded", 3, 1, 0)
			r.SourceFinished("loaded", 2, 0, 4)
			r.SourceFinished("skipped", 0, 0, 0)
			r.SourceFinished("failed", 0, 0, 0)
			r.StoreRecords(5)
			r.Exported(5)
			r.RunFinished(1500*time.Millisecond, time.Unix(1700000000, 0))

			path := filepath.Join(t.TempDir(), "textfile", "trendload.prom")
			err := r.WriteTextfile(path)

			Convey("Then the textfile holds every metric", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				out := string(data)

				So(out, ShouldContainSubstring, `trendload_sources_total{outcome="loaded"} 2`)
				So(out, ShouldContainSubstring, `trendload_sources_total{outcome="skipped"} 1`)
				So(out, ShouldContainSubstring, `trendload_sources_total{outcome="failed"} 1`)
				So(out, ShouldContainSubstring, "trendload_rows_inserted_total 5")
				So(out, ShouldContainSubstring, "trendload_rows_rejected_total 1")
				So(out, ShouldContainSubstring, "trendload_rows_dropped_total 4")
				So(out, ShouldContainSubstring, "trendload_store_records 5")
				So(out, ShouldContainSubstring, "trendload_export_rows 5")
				So(out, ShouldContainSubstring, "trendload_run_duration_seconds 1.5")
				So(out, ShouldContainSubstring, "trendload_last_run_timestamp_seconds 1.7e+09")
			})
		})

		Convey("When no path is configured", func() {
			Convey("Then writing is a no-op", func() {
				So(r.WriteTextfile(""), ShouldBeNil)
			})
		})
	})

	Convey("Given a custom namespace", t, func() {
		r := NewRecorder(WithNamespace("etl"))
		r.Exported(7)
		path := filepath.Join(t.TempDir(), "etl.prom")

		So(r.WriteTextfile(path), ShouldBeNil)
		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, "etl_export_rows 7")
	})

	Convey("Given a nil recorder", t, func() {
		var r *Recorder

		Convey("Then every method is safe", func() {
			So(func() {
				r.SourceFinished("loaded", 1, 1, 1)
				r.StoreRecords(1)
				r.Exported(1)
				r.RunFinished(time.Second, time.Now())
			}, ShouldNotPanic)
			So(r.Registry(), ShouldBeNil)
			So(r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")), ShouldBeNil)
		})
	})
}

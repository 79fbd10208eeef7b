package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.AddRowsLoaded(1)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_rows_loaded_total")
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil),
				WithConstLabels(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "gradebook")
				So(m.subsystem, ShouldEqual, "pipeline")
				So(len(m.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When pipeline counters are incremented", func() {
			m.AddRowsLoaded(10)
			m.AddRowsSkipped(2)
			m.AddCellsDefaulted(3)
			m.AddDuplicatesDropped(1)
			m.RecordPipelineRun(ResultSuccess, 12)
			m.RecordPipelineRun(ResultFailure, 3)
			m.RecordPipelineRun(ResultSuccess, 8)

			Convey("Then each counter reflects the additions", func() {
				So(testutil.ToFloat64(m.rowsLoaded), ShouldEqual, 10)
				So(testutil.ToFloat64(m.rowsSkipped), ShouldEqual, 2)
				So(testutil.ToFloat64(m.cellsDefaulted), ShouldEqual, 3)
				So(testutil.ToFloat64(m.duplicatesDropped), ShouldEqual, 1)
				So(testutil.ToFloat64(m.pipelineRuns.WithLabelValues(ResultSuccess)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.pipelineRuns.WithLabelValues(ResultFailure)), ShouldEqual, 1)
			})
		})

		Convey("When a snapshot is published", func() {
			m.UpdateSnapshot(5, 3, 1700000000)

			Convey("Then the gauges are set", func() {
				So(testutil.ToFloat64(m.snapshotRecords), ShouldEqual, 5)
				So(testutil.ToFloat64(m.snapshotScholars), ShouldEqual, 3)
				So(testutil.ToFloat64(m.snapshotPublished), ShouldEqual, 1700000000)
			})
		})

		Convey("When collaborators and HTTP record", func() {
			m.RecordReportRendered("group")
			m.RecordExportWritten("xlsx")
			m.RecordHTTPRequest("summary", "GET", "200", 4)

			Convey("Then labelled counters are incremented", func() {
				So(testutil.ToFloat64(m.reportsRendered.WithLabelValues("group")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.exportsWritten.WithLabelValues("xlsx")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("summary", "GET", "200")), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalRegistry(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(Global(), ShouldNotBeNil)
		So(GetRegistry(), ShouldNotBeNil)

		Convey("When recording through package helpers", func() {
			before := testutil.ToFloat64(Global().rowsLoaded)
			AddRowsLoaded(4)

			Convey("Then the global counter moves", func() {
				So(testutil.ToFloat64(Global().rowsLoaded), ShouldEqual, before+4)
			})
		})
	})
}

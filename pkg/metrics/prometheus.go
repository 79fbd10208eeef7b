package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline run outcomes used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Manager owns every Prometheus collector of the gradebook service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline stage counters
	rowsLoaded         prometheus.Counter
	rowsSkipped        prometheus.Counter
	cellsDefaulted     prometheus.Counter
	duplicatesDropped  prometheus.Counter
	pipelineRuns       *prometheus.CounterVec
	pipelineDurationMs prometheus.Histogram

	// Published snapshot state
	snapshotRecords   prometheus.Gauge
	snapshotScholars  prometheus.Gauge
	snapshotPublished prometheus.Gauge

	// Collaborators
	reportsRendered *prometheus.CounterVec
	exportsWritten  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // custom registry keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gradebook",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsLoaded = m.counter("rows_loaded_total", "Data rows read from tabular sources")
	m.rowsSkipped = m.counter("rows_skipped_total", "Data rows skipped because the name cell was blank")
	m.cellsDefaulted = m.counter("cells_defaulted_total", "Subject cells replaced by the default score")
	m.duplicatesDropped = m.counter("duplicates_dropped_total", "Records dropped because their name was already seen")
	m.pipelineRuns = m.counterVec("runs_total", "Pipeline runs by result", "result")

	m.pipelineDurationMs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "duration_milliseconds",
		Help:        "Wall time of a full load-normalize-score run",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.snapshotRecords = m.gauge("snapshot_records", "Records in the published snapshot")
	m.snapshotScholars = m.gauge("snapshot_scholars", "Scholarship holders in the published snapshot")
	m.snapshotPublished = m.gauge("snapshot_published_unix", "Unix time the current snapshot was published")

	m.reportsRendered = m.counterVec("reports_rendered_total", "PDF reports rendered by kind", "kind")
	m.exportsWritten = m.counterVec("exports_written_total", "Processed gradebooks written by format", "format")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// AddRowsLoaded adds n loaded rows.
func (m *Manager) AddRowsLoaded(n int) { m.rowsLoaded.Add(float64(n)) }

// AddRowsSkipped adds n skipped rows.
func (m *Manager) AddRowsSkipped(n int) { m.rowsSkipped.Add(float64(n)) }

// AddCellsDefaulted adds n defaulted cells.
func (m *Manager) AddCellsDefaulted(n int) { m.cellsDefaulted.Add(float64(n)) }

// AddDuplicatesDropped adds n dropped duplicates.
func (m *Manager) AddDuplicatesDropped(n int) { m.duplicatesDropped.Add(float64(n)) }

// RecordPipelineRun counts a run and observes its duration.
func (m *Manager) RecordPipelineRun(result string, durationMs float64) {
	m.pipelineRuns.WithLabelValues(result).Inc()
	m.pipelineDurationMs.Observe(durationMs)
}

// UpdateSnapshot sets the published snapshot gauges.
func (m *Manager) UpdateSnapshot(records, scholars int, publishedUnix int64) {
	m.snapshotRecords.Set(float64(records))
	m.snapshotScholars.Set(float64(scholars))
	m.snapshotPublished.Set(float64(publishedUnix))
}

// RecordReportRendered counts a rendered report.
func (m *Manager) RecordReportRendered(kind string) { m.reportsRendered.WithLabelValues(kind).Inc() }

// RecordExportWritten counts a written export.
func (m *Manager) RecordExportWritten(format string) { m.exportsWritten.WithLabelValues(format).Inc() }

// RecordHTTPRequest counts a request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Global shortcuts.

// Global returns the process-wide manager backed by GetRegistry.
func Global() *Manager { return globalManager }

// AddRowsLoaded adds n loaded rows on the global manager.
func AddRowsLoaded(n int) { globalManager.AddRowsLoaded(n) }

// AddRowsSkipped adds n skipped rows on the global manager.
func AddRowsSkipped(n int) { globalManager.AddRowsSkipped(n) }

// AddCellsDefaulted adds n defaulted cells on the global manager.
func AddCellsDefaulted(n int) { globalManager.AddCellsDefaulted(n) }

// AddDuplicatesDropped adds n dropped duplicates on the global manager.
func AddDuplicatesDropped(n int) { globalManager.AddDuplicatesDropped(n) }

// RecordPipelineRun records a run on the global manager.
func RecordPipelineRun(result string, durationMs float64) {
	globalManager.RecordPipelineRun(result, durationMs)
}

// UpdateSnapshot sets the snapshot gauges on the global manager.
func UpdateSnapshot(records, scholars int, publishedUnix int64) {
	globalManager.UpdateSnapshot(records, scholars, publishedUnix)
}

// RecordReportRendered counts a report on the global manager.
func RecordReportRendered(kind string) { globalManager.RecordReportRendered(kind) }

// RecordExportWritten counts an export on the global manager.
func RecordExportWritten(format string) { globalManager.RecordExportWritten(format) }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

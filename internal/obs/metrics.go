package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics groups the loader's run counters. Each run owns its registry so a
// one-shot process can push it and tests can inspect it in isolation.
type Metrics struct {
	Registry *prometheus.Registry

	Batches        *prometheus.CounterVec
	RowsWritten    prometheus.Counter
	IngestDuration prometheus.Histogram
	LastRun        prometheus.Gauge
}

// NewMetrics creates and registers the loader metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_loader_batches_total",
			Help: "Discovered batches by terminal state",
		}, []string{"state"}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batch_loader_rows_written_total",
			Help: "Rows appended to the table store",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_loader_ingest_duration_seconds",
			Help:    "Time to fetch, normalize and append one batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batch_loader_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
	m.Registry.MustRegister(m.Batches, m.RowsWritten, m.IngestDuration, m.LastRun)
	return m
}

// ObserveBatch records one batch outcome.
func (m *Metrics) ObserveBatch(state string, rows int64, d time.Duration) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(state).Inc()
	if rows > 0 {
		m.RowsWritten.Add(float64(rows))
	}
	if d > 0 {
		m.IngestDuration.Observe(d.Seconds())
	}
}

// MarkRunCompleted stamps the completion time.
func (m *Metrics) MarkRunCompleted() {
	if m == nil {
		return
	}
	m.LastRun.SetToCurrentTime()
}

// Push sends the registry to a Prometheus Pushgateway under the given job.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.Registry).Push()
}

// HTTPMetrics counts batch source requests by route and status.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
}

// NewHTTPMetrics registers the request counter on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_source_requests_total",
			Help: "HTTP requests served by the batch source",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.Requests)
	return m
}

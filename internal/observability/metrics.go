// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "strategy_analytics"

// Metrics holds all Prometheus metrics of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Report metrics
	ReportsComputed  *prometheus.CounterVec
	ReportDuration   prometheus.Histogram
	TradesAnalyzed   prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	ReportsPersisted prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Scheduler metrics
	JobRuns           *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
	LastSuccessfulJob *prometheus.GaugeVec
}

// NewMetrics registers every metric on reg.
// 테스트에서는 prometheus.NewRegistry()를 넘겨 전역 등록 충돌을 피함
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ReportsComputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "computed_total",
			Help:      "Total number of reports computed by status",
		}, []string{"status"}),
		ReportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "Report computation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TradesAnalyzed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "trades_analyzed_total",
			Help:      "Total number of trades fed into report computation",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Report cache lookups by result",
		}, []string{"result"}),
		ReportsPersisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "persisted_total",
			Help:      "Total number of report runs written to storage",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs by status",
		}, []string{"job", "status"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"job"}),
		LastSuccessfulJob: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful run per job",
		}, []string{"job"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordReport records one report computation.
func (m *Metrics) RecordReport(trades int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ReportsComputed.WithLabelValues(status).Inc()
	m.ReportDuration.Observe(elapsed.Seconds())
	m.TradesAnalyzed.Add(float64(trades))
}

// RecordCache records a cache hit or miss.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordPersisted counts a saved report run.
func (m *Metrics) RecordPersisted() {
	if m == nil {
		return
	}
	m.ReportsPersisted.Inc()
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(route, method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, code).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordJob records one scheduler job run.
func (m *Metrics) RecordJob(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err == nil {
		m.LastSuccessfulJob.WithLabelValues(job).SetToCurrentTime()
	}
}

// PoolStatsFunc reports connection pool occupancy at scrape time
type PoolStatsFunc func() (acquired, idle, total int32)

// RegisterPool exposes a connection pool's occupancy as gauges labelled by state.
func RegisterPool(reg prometheus.Registerer, pool string, stats PoolStatsFunc) {
	gauge := func(state string, pick func(acquired, idle, total int32) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "db_pool",
			Name:        "connections",
			Help:        "Database pool connections by state",
			ConstLabels: prometheus.Labels{"pool": pool, "state": state},
		}, func() float64 {
			return float64(pick(stats()))
		})
	}
	reg.MustRegister(
		gauge("acquired", func(a, _, _ int32) int32 { return a }),
		gauge("idle", func(_, i, _ int32) int32 { return i }),
		gauge("total", func(_, _, t int32) int32 { return t }),
	)
}

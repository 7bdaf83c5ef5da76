package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for admin observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kelas_admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kelas_admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kelas_admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(adminRequestsTotal, adminLatencySeconds, adminErrorsTotal)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

var (
	gradingOnce         sync.Once
	gradingSessionsOpen prometheus.Gauge
	gradingSavesTotal   *prometheus.CounterVec
	gradingBatchItems   *prometheus.CounterVec
)

func registerGradingMetrics() {
	gradingOnce.Do(func() {
		gradingSessionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kelas_grading_sessions_open",
			Help: "Number of grading sessions currently held in memory.",
		})

		gradingSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kelas_grading_saves_total",
			Help: "Total grading save attempts by result.",
		}, []string{"result"})

		gradingBatchItems = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kelas_grading_batch_items_total",
			Help: "Total submissions processed by batch actions, by outcome.",
		}, []string{"action", "outcome"})

		prometheus.MustRegister(gradingSessionsOpen, gradingSavesTotal, gradingBatchItems)
	})
}

// GradingSessionsOpen exposes the live session gauge.
func GradingSessionsOpen() prometheus.Gauge {
	registerGradingMetrics()
	return gradingSessionsOpen
}

// GradingSaves exposes the save attempt counter.
func GradingSaves() *prometheus.CounterVec {
	registerGradingMetrics()
	return gradingSavesTotal
}

// GradingBatchItems exposes the per-item batch outcome counter.
func GradingBatchItems() *prometheus.CounterVec {
	registerGradingMetrics()
	return gradingBatchItems
}

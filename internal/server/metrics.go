package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus metrics for the HTTP API. Registered once
// globally; repeated construction returns the same instance so tests
// spinning up several servers do not trip duplicate registration.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// AssessmentsTotal counts finished assessment runs by decision
	// outcome.
	AssessmentsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the HTTP metrics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "readygate_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "readygate_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
				[]string{"method", "path"},
			),
			AssessmentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "readygate_assessments_total",
					Help: "Total number of assessment runs by outcome",
				},
				[]string{"ready", "tier"},
			),
		}
	})
	return globalMetrics
}

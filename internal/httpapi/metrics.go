package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments spec.md §4.7 step 4 requires:
// http_server_requests_total{method,route,status},
// http_server_request_duration_seconds, http_server_active_requests, and
// http_server_errors_total.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics registers the gateway's HTTP metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "http_server",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "http_server",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ActiveRequests: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "http_server",
				Name:      "active_requests",
				Help:      "In-flight HTTP requests.",
			},
		),
		ErrorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "http_server",
				Name:      "errors_total",
				Help:      "Total HTTP responses with a non-2xx status.",
			},
			[]string{"method", "route"},
		),
	}
}

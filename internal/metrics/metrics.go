// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics, labelled by route pattern rather than raw path.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidtube_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Media pipeline metrics.
	MediaOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_media_operations_total",
			Help: "Total number of media storage operations",
		},
		[]string{"operation", "kind", "result"},
	)

	MediaUploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_media_upload_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
		[]string{"kind"},
	)

	// Circuit breaker metrics.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vidtube_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_circuit_breaker_requests_total",
			Help: "Requests passing through a circuit breaker by result",
		},
		[]string{"name", "result"},
	)

	// Toggle outcomes for likes and subscriptions.
	TogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_toggles_total",
			Help: "Like and subscription toggles by resulting state",
		},
		[]string{"kind", "state"},
	)

	AuthRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_auth_rate_limited_total",
			Help: "Authentication requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

// ToggleState labels the outcome of a toggle.
func ToggleState(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

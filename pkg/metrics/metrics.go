package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for BackendRequests.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gateway", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gateway", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gateway", Name: "backend_requests_total", Help: "Calls forwarded to a backing store by backend, operation and outcome."},
		[]string{"backend", "operation", "outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(BackendRequests)
}

// ObserveBackend records one forwarded call.
func ObserveBackend(backend, operation, outcome string) {
	BackendRequests.WithLabelValues(backend, operation, outcome).Inc()
}

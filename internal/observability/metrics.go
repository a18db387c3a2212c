package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for OptimisticOperations.
const (
	OutcomeApplied    = "applied"
	OutcomeConfirmed  = "confirmed"
	OutcomeRolledBack = "rolled_back"
	OutcomeLocal      = "local"
)

var (
	// OptimisticOperations counts optimistic mutations by operation and outcome.
	OptimisticOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snmvm_optimistic_operations_total",
		Help: "Total optimistic operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// APIRequestDuration records backend call latency by method, route and status.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snmvm_api_request_duration_seconds",
		Help:    "Backend request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// CacheErrors counts server-state cache errors by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snmvm_cache_errors_total",
		Help: "Total number of cache errors by operation",
	}, []string{"operation"})
)

// TrackRequest returns a function that records the latency of a backend call
// when called with the response status (0 when no response was received).
func TrackRequest(method, route string) func(status int) {
	start := time.Now()
	return func(status int) {
		APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	}
}

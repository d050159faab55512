package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all wrapper-level metrics (not cache-table specific)
type Metrics struct {
	// Invocation metrics
	InvocationsTotal  *prometheus.CounterVec
	PassthroughsTotal *prometheus.CounterVec

	// Failure handling metrics
	SuppressedFailuresTotal *prometheus.CounterVec
	RetryAttemptsTotal      *prometheus.CounterVec

	// Coalescing metrics
	CoalescedWaiters *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all wrapper metrics
func NewMetrics() *Metrics {
	return &Metrics{
		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "throttle",
				Subsystem: "wrapper",
				Name:      "invocations_total",
				Help:      "Total number of wrapper invocations",
			},
			[]string{"wrapper"},
		),

		PassthroughsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "throttle",
				Subsystem: "wrapper",
				Name:      "passthroughs_total",
				Help:      "Total number of invocations dispatched to the producer",
			},
			[]string{"wrapper"},
		),

		SuppressedFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "throttle",
				Subsystem: "wrapper",
				Name:      "suppressed_failures_total",
				Help:      "Total number of producer failures answered from a stale result",
			},
			[]string{"wrapper"},
		),

		RetryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "throttle",
				Subsystem: "wrapper",
				Name:      "retry_attempts_total",
				Help:      "Total number of producer retry attempts after the first failure",
			},
			[]string{"wrapper"},
		),

		CoalescedWaiters: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "throttle",
				Subsystem: "wrapper",
				Name:      "coalesced_waiters",
				Help:      "Current number of callers waiting on in-flight producer calls",
			},
			[]string{"wrapper"},
		),
	}
}

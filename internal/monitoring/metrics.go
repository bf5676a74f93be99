// Package monitoring exposes the guard's Prometheus metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the guard service.
type Metrics struct {
	// Decision metrics
	Decisions *prometheus.CounterVec

	// Degraded (no-op) responses
	Degraded *prometheus.CounterVec

	// Configuration lookup latency
	LookupDuration prometheus.Histogram

	// Audit log write failures (best-effort writes, never surfaced)
	AuditWriteFailures prometheus.Counter
}

// NewMetrics creates and registers all guard metrics. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_decisions_total",
				Help: "Total gate decisions by classification",
			},
			[]string{"classification"}, // allow, block_geo, block_device
		),

		Degraded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_degraded_responses_total",
				Help: "Total no-op responses returned on the fail-open paths",
			},
			[]string{"reason"}, // missing_id, not_found, lookup_failed, panic
		),

		LookupDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "guard_config_lookup_seconds",
				Help:    "Duration of gate configuration lookups",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),

		AuditWriteFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "guard_audit_write_failures_total",
				Help: "Total audit log writes that failed or timed out",
			},
		),
	}
}

// RecordDecision records one evaluated request by classification.
func (m *Metrics) RecordDecision(classification string) {
	m.Decisions.WithLabelValues(classification).Inc()
}

// RecordDegraded records a no-op response and its reason.
func (m *Metrics) RecordDegraded(reason string) {
	m.Degraded.WithLabelValues(reason).Inc()
}

// ObserveLookup records one configuration lookup duration.
func (m *Metrics) ObserveLookup(d time.Duration) {
	m.LookupDuration.Observe(d.Seconds())
}

// RecordAuditFailure records a swallowed audit write error.
func (m *Metrics) RecordAuditFailure() {
	m.AuditWriteFailures.Inc()
}

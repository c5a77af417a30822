package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Allocation outcomes reported by the ledger.
const (
	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// LedgerMetrics tracks allocation attempts and their outcomes.
type LedgerMetrics struct {
	outcomes *prometheus.CounterVec
	attempts prometheus.Histogram
	duration *prometheus.HistogramVec
	repaired prometheus.Counter
}

// NewLedgerMetrics registers the ledger collectors on reg. A nil registerer
// yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cashflow",
		Name:      "allocation_outcomes_total",
		Help:      "Allocation requests by outcome and error code.",
	}, []string{"outcome", "code"})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cashflow",
		Name:      "allocation_attempts",
		Help:      "Transaction attempts spent per allocation request.",
		Buckets:   []float64{1, 2, 3, 4, 6, 8},
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cashflow",
		Name:      "allocation_duration_seconds",
		Help:      "Wall time of allocation requests including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	repaired := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cashflow",
		Name:      "bill_reconcile_repaired_total",
		Help:      "Bills whose derived fields were rewritten by reconciliation.",
	})
	reg.MustRegister(outcomes, attempts, duration, repaired)
	return &LedgerMetrics{
		outcomes: outcomes,
		attempts: attempts,
		duration: duration,
		repaired: repaired,
	}
}

// ObserveAllocation records one finished allocation request.
func (m *LedgerMetrics) ObserveAllocation(outcome, code string, attempts int, elapsed time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.outcomes.WithLabelValues(outcome, code).Inc()
	m.attempts.Observe(float64(attempts))
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddRepaired counts bills fixed by reconciliation.
func (m *LedgerMetrics) AddRepaired(n int) {
	if m == nil || m.repaired == nil || n <= 0 {
		return
	}
	m.repaired.Add(float64(n))
}

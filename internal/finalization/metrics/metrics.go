package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for finalize calls.
const (
	OutcomeCommitted        = "committed"
	OutcomeNoop             = "noop"
	OutcomeInvalidBatch     = "invalid_batch"
	OutcomeValidation       = "validation_error"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeConflict         = "conflict"
)

// Metrics provides observability for the finalization module.
type Metrics struct {
	// Finalize outcomes by result
	FinalizeOutcome *prometheus.CounterVec

	// Overall finalize latency, lock wait included
	FinalizeLatency prometheus.Histogram

	// Registrations finalized by payment mode and settlement channel
	FinalizedRegistrations *prometheus.CounterVec

	// Amount collected by settlement channel, in tariff currency units
	CollectedAmount *prometheus.CounterVec

	// Commits that lost against another instance and were retried
	ConflictRetries prometheus.Counter
}

// New creates a new Metrics instance with all finalization metrics registered.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the finalization metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FinalizeOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fanaf_finalize_outcomes_total",
			Help: "Total finalize calls by outcome",
		}, []string{"outcome"}),

		FinalizeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fanaf_finalize_duration_seconds",
			Help:    "Duration of finalize calls including the durable commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		FinalizedRegistrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fanaf_registrations_finalized_total",
			Help: "Registrations moved from pending to finalized",
		}, []string{"payment_mode", "settlement_channel"}),

		CollectedAmount: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fanaf_collected_amount_total",
			Help: "Tariff amount finalized by settlement channel",
		}, []string{"settlement_channel"}),

		ConflictRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "fanaf_finalize_conflict_retries_total",
			Help: "Finalize commits retried after another instance committed first",
		}),
	}
}

// IncrementOutcome records a finalize outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.FinalizeOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveFinalizeLatency records the total finalize duration.
func (m *Metrics) ObserveFinalizeLatency(d time.Duration) {
	if m != nil {
		m.FinalizeLatency.Observe(d.Seconds())
	}
}

// ObserveCommitted records a committed batch.
func (m *Metrics) ObserveCommitted(mode, channel string, count int, amount float64) {
	if m != nil {
		m.FinalizedRegistrations.WithLabelValues(mode, channel).Add(float64(count))
		m.CollectedAmount.WithLabelValues(channel).Add(amount)
	}
}

// IncrementConflictRetries records one retried commit.
func (m *Metrics) IncrementConflictRetries() {
	if m != nil {
		m.ConflictRetries.Inc()
	}
}

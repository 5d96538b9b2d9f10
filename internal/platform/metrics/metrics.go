package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine-wide Prometheus metrics: reconciliation gauges,
// change hub health and persistence breaker state.
type Metrics struct {
	RegistrationsByState *prometheus.GaugeVec
	AmountByState        *prometheus.GaugeVec
	RecoveryRate         prometheus.Gauge
	HubOverflows         prometheus.Counter
	BreakerOpen          *prometheus.GaugeVec
	RemoteSignals        *prometheus.CounterVec
}

// New creates and registers all engine metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsByState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fanaf_registrations",
			Help: "Registrations by payment state",
		}, []string{"state"}),
		AmountByState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fanaf_registrations_amount",
			Help: "Tariff amount by payment state",
		}, []string{"state"}),
		RecoveryRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "fanaf_recovery_rate",
			Help: "Finalized amount over pending plus finalized amount",
		}),
		HubOverflows: f.NewCounter(prometheus.CounterOpts{
			Name: "fanaf_changefeed_overflows_total",
			Help: "Subscriber buffers that overflowed and were sent a reload",
		}),
		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fanaf_persistence_breaker_open",
			Help: "1 while the persistence circuit breaker is open",
		}, []string{"name"}),
		RemoteSignals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fanaf_changefeed_remote_signals_total",
			Help: "Change signals received from other instances by kind",
		}, []string{"kind"}),
	}
}

// ObserveSummary publishes the current reconciliation figures.
func (m *Metrics) ObserveSummary(pendingCount, finalizedCount, exemptCount int, pendingAmount, finalizedAmount, recoveryRate float64) {
	if m == nil {
		return
	}
	m.RegistrationsByState.WithLabelValues("pending").Set(float64(pendingCount))
	m.RegistrationsByState.WithLabelValues("finalized").Set(float64(finalizedCount))
	m.RegistrationsByState.WithLabelValues("exempt").Set(float64(exemptCount))
	m.AmountByState.WithLabelValues("pending").Set(pendingAmount)
	m.AmountByState.WithLabelValues("finalized").Set(finalizedAmount)
	m.RecoveryRate.Set(recoveryRate)
}

// IncHubOverflow counts a subscriber overflow.
func (m *Metrics) IncHubOverflow() {
	if m == nil {
		return
	}
	m.HubOverflows.Inc()
}

// SetBreakerState records a breaker transition.
func (m *Metrics) SetBreakerState(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(name).Set(v)
}

// IncRemoteSignal counts a signal received from another instance.
func (m *Metrics) IncRemoteSignal(kind string) {
	if m == nil {
		return
	}
	m.RemoteSignals.WithLabelValues(kind).Inc()
}

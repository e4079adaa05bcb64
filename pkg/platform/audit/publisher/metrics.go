package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit delivery. A nil *Metrics records nothing.
type Metrics struct {
	Persisted       prometheus.Counter
	PersistFailures prometheus.Counter
	Dropped         *prometheus.CounterVec
	BreakerOpen     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Persisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "eidgate_audit_persisted_total",
			Help: "Audit events written to the store",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "eidgate_audit_persist_failures_total",
			Help: "Audit events the store rejected",
		}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eidgate_audit_dropped_total",
			Help: "Audit events dropped before reaching the store, by reason",
		}, []string{"reason"}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eidgate_audit_breaker_open",
			Help: "1 while the audit store circuit breaker is open",
		}),
	}
}

func (m *Metrics) incPersisted() {
	if m == nil {
		return
	}
	m.Persisted.Inc()
}

func (m *Metrics) incPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) incDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

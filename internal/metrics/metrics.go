// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the pipeline's Prometheus collectors.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	ExecutionsTotal  *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	CapitalAvailable prometheus.Gauge
	CapitalReserved  prometheus.Gauge
	ActivePositions  prometheus.Gauge
	Threshold        prometheus.Gauge
}

// New creates and registers the pipeline collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_decisions_total",
			Help: "Decisions emitted by the engine, labeled by action.",
		}, []string{"action"}),
		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_executions_total",
			Help: "Settled executions, labeled by outcome and venue.",
		}, []string{"outcome", "venue"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sniper_queue_depth",
			Help: "Queue entries by status.",
		}, []string{"status"}),
		CapitalAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_capital_available_sol",
			Help: "Available capital in SOL.",
		}),
		CapitalReserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_capital_reserved_sol",
			Help: "Reserved capital in SOL.",
		}),
		ActivePositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_active_positions",
			Help: "Open position count.",
		}),
		Threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_decision_threshold",
			Help: "Current adaptive confidence threshold.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.DecisionsTotal,
			m.ExecutionsTotal,
			m.QueueDepth,
			m.CapitalAvailable,
			m.CapitalReserved,
			m.ActivePositions,
			m.Threshold,
		)
	}
	return m
}

// ObserveDecision counts one decision by action.
func (m *Metrics) ObserveDecision(action string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(action).Inc()
}

// ObserveExecution counts one settled execution.
func (m *Metrics) ObserveExecution(outcome, venue string) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(outcome, venue).Inc()
}

// SetQueueDepth records the queue depth for one status.
func (m *Metrics) SetQueueDepth(status string, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(status).Set(float64(depth))
}

// SetCapital records the ledger gauges.
func (m *Metrics) SetCapital(available, reserved float64, positions int) {
	if m == nil {
		return
	}
	m.CapitalAvailable.Set(available)
	m.CapitalReserved.Set(reserved)
	m.ActivePositions.Set(float64(positions))
}

// SetThreshold records the adaptive threshold gauge.
func (m *Metrics) SetThreshold(threshold int) {
	if m == nil {
		return
	}
	m.Threshold.Set(float64(threshold))
}

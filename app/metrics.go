package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeBusy    = "busy"
)

// Metrics counts UI actions by outcome and times them. A nil *Metrics records nothing.
type Metrics struct {
	// Actions number, by action and outcome (success, busy or an error kind)
	actions *prometheus.CounterVec

	// Action duration (seconds), including confirmation
	actionTime *prometheus.HistogramVec
}

// NewMetrics creates the UI metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Subsystem: "app",
			Name:      "actions_total",
			Help:      "User actions by outcome",
		}, []string{"action", "outcome"}),
		actionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lottery",
			Subsystem: "app",
			Name:      "action_seconds",
			Help:      "Action duration (seconds)",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 15, 30, 60, 120},
		}, []string{"action"}),
	}

	reg.MustRegister(m.actions, m.actionTime)

	return m
}

func (m *Metrics) observe(r Result, took time.Duration) {
	if m == nil {
		return
	}

	outcome := outcomeSuccess
	if !r.OK() {
		outcome = string(r.Kind)
	}

	m.actions.WithLabelValues(string(r.Action), outcome).Inc()
	m.actionTime.WithLabelValues(string(r.Action)).Observe(took.Seconds())
}

func (m *Metrics) busy(a Action) {
	if m == nil {
		return
	}

	m.actions.WithLabelValues(string(a), outcomeBusy).Inc()
}

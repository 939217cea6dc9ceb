package flows

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reoring/clientflow/internal/logging"
)

// Trigger outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeSkip    = "skip"
	OutcomeError   = "error"
)

// Metrics holds the transformer's Prometheus collectors.
type Metrics struct {
	TriggersTotal    *prometheus.CounterVec
	ExtractionsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientflow_trigger_transformations_total",
				Help: "Trigger-time transformations by outcome",
			},
			[]string{logging.OutcomeKey},
		),
		ExtractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientflow_extractions_total",
				Help: "Entity extractions by format",
			},
			[]string{logging.FormatKey},
		),
	}
	if reg != nil {
		reg.MustRegister(m.TriggersTotal, m.ExtractionsTotal)
	}
	return m
}

func (m *Metrics) trigger(outcome string) {
	if m == nil {
		return
	}
	m.TriggersTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) extraction(format ExtractionFormat) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(string(format)).Inc()
}

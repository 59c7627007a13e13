package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
	Faults    *prometheus.CounterVec
}

func InitializeMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	metrics := &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "decisions_total",
			Help:        "Number of origin responses by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome", "reason"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "faults_total",
			Help:        "Number of failed transformations that fell back to the original response",
			ConstLabels: constLabels,
		}, []string{"stage"}),
	}

	// Register the custom metrics with the Prometheus registry
	registry.MustRegister(metrics.Decisions)
	registry.MustRegister(metrics.Faults)

	return metrics
}

// RecordDecision counts one handled response
func (m *Metrics) RecordDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(outcome, reason).Inc()
}

// RecordFault counts one fault at the given pipeline stage
func (m *Metrics) RecordFault(stage string) {
	if m == nil {
		return
	}
	m.Faults.WithLabelValues(stage).Inc()
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what one pipeline run did. Each run owns its own registry,
// so nothing here is global.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsParsed    prometheus.Counter
	DocumentsFailed    prometheus.Counter
	RecordsSkipped     prometheus.Counter
	FindingsNormalized prometheus.Counter
	FindingsKept       prometheus.Counter
	FindingsScored     *prometheus.CounterVec
	DampeningApplied   prometheus.Counter
	ExplanationErrors  prometheus.Counter
}

// NewMetrics creates and registers the run counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DocumentsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "documents_parsed_total",
			Help:      "Scan documents parsed successfully.",
		}),
		DocumentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "documents_failed_total",
			Help:      "Scan documents rejected as malformed.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "records_skipped_total",
			Help:      "Finding records skipped inside valid documents.",
		}),
		FindingsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "findings_normalized_total",
			Help:      "Findings extracted before the severity filter.",
		}),
		FindingsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "findings_kept_total",
			Help:      "Findings that passed the severity filter.",
		}),
		FindingsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "findings_scored_total",
			Help:      "Scored findings by risk level.",
		}, []string{"risk_level"}),
		DampeningApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "dampening_applied_total",
			Help:      "Findings whose score was dampened.",
		}),
		ExplanationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscope",
			Name:      "explanation_errors_total",
			Help:      "Explanations that fell back to manual review.",
		}),
	}

	m.registry.MustRegister(
		m.DocumentsParsed,
		m.DocumentsFailed,
		m.RecordsSkipped,
		m.FindingsNormalized,
		m.FindingsKept,
		m.FindingsScored,
		m.DampeningApplied,
		m.ExplanationErrors,
	)
	return m
}

// Registry exposes the gatherer, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the counters in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

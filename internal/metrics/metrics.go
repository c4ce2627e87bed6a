// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sevaflow/internal/domain"
)

const namespace = "sevaflow"

type Metrics struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
	registered      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	substitutions   prometheus.Counter
	escalations     prometheus.Counter
}

// New registers the sevaflow collectors, plus the Go runtime and process
// collectors, on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Grievance classifications by source (backend name or rules).",
		}, []string{"source"}),
		backendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_backend_failures_total",
			Help:      "Classifier backend calls that failed, timed out or returned unusable output.",
		}, []string{"backend"}),
		registered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grievances_registered_total",
			Help:      "Grievances registered by assigned unit and urgency.",
		}, []string{"unit", "urgency"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Applied status transitions by target status.",
		}, []string{"status"}),
		substitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_substitutions_total",
			Help:      "Classifications naming an unknown unit, routed to the default unit instead.",
		}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_escalations_total",
			Help:      "Grievances escalated by the SLA sweep.",
		}),
	}
	reg.MustRegister(
		m.classifications,
		m.backendFailures,
		m.registered,
		m.transitions,
		m.substitutions,
		m.escalations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Classified(source string) {
	m.classifications.WithLabelValues(source).Inc()
}

func (m *Metrics) BackendFailure(backend string) {
	m.backendFailures.WithLabelValues(backend).Inc()
}

func (m *Metrics) Registered(unit string, urgency domain.Urgency) {
	m.registered.WithLabelValues(unit, string(urgency)).Inc()
}

func (m *Metrics) Transitioned(status domain.Status) {
	m.transitions.WithLabelValues(string(status)).Inc()
}

// Substituted carries no label: the requested name is free model text and
// is logged by the caller instead.
func (m *Metrics) Substituted() {
	m.substitutions.Inc()
}

func (m *Metrics) Escalated(n int) {
	m.escalations.Add(float64(n))
}

// Handler serves the registry on /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

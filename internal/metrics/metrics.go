// Package metrics exposes Prometheus counters for deposit calculations and
// explanation requests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deposit"

// Metrics owns a private registry so that several instances can coexist in
// tests. All methods are safe on a nil receiver.
type Metrics struct {
	registry            *prometheus.Registry
	calculations        *prometheus.CounterVec
	explanations        *prometheus.CounterVec
	explanationFailures *prometheus.CounterVec
	explanationDuration prometheus.Histogram
	staleResults        prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Deposit calculations by outcome.",
		}, []string{"outcome"}),
		explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanations_total",
			Help:      "Explanations returned, by source.",
		}, []string{"source"}),
		explanationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanation_failures_total",
			Help:      "Explanation requests that fell back, by reason.",
		}, []string{"reason"}),
		explanationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "explanation_duration_seconds",
			Help:      "Time spent waiting for an explanation.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_stale_results_total",
			Help:      "Explanations discarded because a newer submission replaced them.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.calculations,
		m.explanations,
		m.explanationFailures,
		m.explanationDuration,
		m.staleResults,
	)
	return m
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCalculation counts a calculation as "ok" or "invalid"
func (m *Metrics) ObserveCalculation(valid bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !valid {
		outcome = "invalid"
	}
	m.calculations.WithLabelValues(outcome).Inc()
}

// ObserveExplanation records where an explanation came from and how long it
// took. reason is only used for fallbacks.
func (m *Metrics) ObserveExplanation(source, reason string, took time.Duration) {
	if m == nil {
		return
	}
	m.explanations.WithLabelValues(source).Inc()
	m.explanationDuration.Observe(took.Seconds())
	if reason != "" {
		m.explanationFailures.WithLabelValues(reason).Inc()
	}
}

// ObserveStaleResult counts an explanation dropped by a newer submission
func (m *Metrics) ObserveStaleResult() {
	if m == nil {
		return
	}
	m.staleResults.Inc()
}

// Package observability exposes finder's Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listeverything/finder/internal/alerting"
	"github.com/listeverything/finder/internal/filter"
)

const namespace = "finder"

// Metrics holds the collectors on a private registry. It implements
// filter.Recorder and alerting.AlertRecorder.
type Metrics struct {
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	evaluationResults  *prometheus.HistogramVec
	predicateFailures  *prometheus.CounterVec
	alertState         *prometheus.GaugeVec
	alertCount         *prometheus.GaugeVec
	alertsFired        *prometheus.CounterVec
}

var (
	_ filter.Recorder        = (*Metrics)(nil)
	_ alerting.AlertRecorder = (*Metrics)(nil)
)

// NewMetrics creates and registers every collector.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Filter tree evaluations by base collection.",
		}, []string{"base"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating one filter tree against one context.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"base"}),
		evaluationResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_results",
			Help:      "Number of entities returned by an evaluation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"base"}),
		predicateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predicate_failures_total",
			Help:      "Entities rejected because a predicate panicked.",
		}, []string{"kind"}),
		alertState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_state",
			Help:      "Alert state: 0 idle, 1 pending, 2 firing.",
		}, []string{"context", "alert"}),
		alertCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_matches",
			Help:      "Match count at the last alert check.",
		}, []string{"context", "alert"}),
		alertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts that entered the firing state.",
		}, []string{"priority"}),
	}

	for _, c := range []prometheus.Collector{
		m.evaluations,
		m.evaluationDuration,
		m.evaluationResults,
		m.predicateFailures,
		m.alertState,
		m.alertCount,
		m.alertsFired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvaluation implements filter.Recorder.
func (m *Metrics) ObserveEvaluation(base filter.BaseKind, results int, elapsed time.Duration) {
	b := string(base)
	m.evaluations.WithLabelValues(b).Inc()
	m.evaluationDuration.WithLabelValues(b).Observe(elapsed.Seconds())
	m.evaluationResults.WithLabelValues(b).Observe(float64(results))
}

// PredicateFailures implements filter.Recorder.
func (m *Metrics) PredicateFailures(kind string, count int) {
	m.predicateFailures.WithLabelValues(kind).Add(float64(count))
}

// ObserveAlert implements alerting.AlertRecorder.
func (m *Metrics) ObserveAlert(contextKey, name string, state alerting.State, count int) {
	m.alertState.WithLabelValues(contextKey, name).Set(stateValue(state))
	m.alertCount.WithLabelValues(contextKey, name).Set(float64(count))
}

// AlertFired implements alerting.AlertRecorder.
func (m *Metrics) AlertFired(priority filter.Priority) {
	m.alertsFired.WithLabelValues(string(priority)).Inc()
}

// ForgetAlert implements alerting.AlertRecorder.
func (m *Metrics) ForgetAlert(contextKey, name string) {
	m.alertState.DeleteLabelValues(contextKey, name)
	m.alertCount.DeleteLabelValues(contextKey, name)
}

func stateValue(s alerting.State) float64 {
	switch s {
	case alerting.StatePending:
		return 1
	case alerting.StateFiring:
		return 2
	default:
		return 0
	}
}

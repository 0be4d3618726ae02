package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
// ⭐ SSOT: 메트릭 이름은 여기서만 정의
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts *prometheus.CounterVec
	fetchResults  *prometheus.CounterVec
	taskOutcomes  *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	taskDuration  prometheus.Histogram
	batchSuccess  prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momentum_fetch_attempts_total",
			Help: "Provider fetch attempts by result.",
		}, []string{"result"}),
		fetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momentum_fetch_results_total",
			Help: "Per-ticker fetch results by status.",
		}, []string{"status"}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momentum_task_outcomes_total",
			Help: "Backtest task outcomes by result and error kind.",
		}, []string{"result", "error_kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momentum_task_transitions_total",
			Help: "Backtest task state transitions.",
		}, []string{"from", "to"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "momentum_task_duration_seconds",
			Help:    "Backtest task wall time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		batchSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "momentum_batch_success_rate",
			Help: "Success rate of the most recent batch.",
		}),
	}

	m.registry.MustRegister(
		m.fetchAttempts,
		m.fetchResults,
		m.taskOutcomes,
		m.transitions,
		m.taskDuration,
		m.batchSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FetchAttempt counts one provider attempt (ok, error, timeout, invalid, short)
func (m *Metrics) FetchAttempt(result string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(result).Inc()
}

// FetchResult counts one per-ticker fetch outcome (ok, degraded, no_data)
func (m *Metrics) FetchResult(status string) {
	if m == nil {
		return
	}
	m.fetchResults.WithLabelValues(status).Inc()
}

// TaskOutcome records one finished task
func (m *Metrics) TaskOutcome(success bool, errorKind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "succeeded"
	if !success {
		result = "failed"
	}
	m.taskOutcomes.WithLabelValues(result, errorKind).Inc()
	m.taskDuration.Observe(elapsed.Seconds())
}

// TaskTransition counts one task state change
func (m *Metrics) TaskTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// BatchSuccessRate records the last batch success rate
func (m *Metrics) BatchSuccessRate(rate float64) {
	if m == nil {
		return
	}
	m.batchSuccess.Set(rate)
}

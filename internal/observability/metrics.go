package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parentnote/backend/services/analysis"
)

const (
	namespace = "parentnote"
	subsystem = "analysis"
)

// Metrics records analysis orchestration metrics in Prometheus
type Metrics struct {
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	resultsTotal    *prometheus.CounterVec
	analyzeDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backend_attempts_total",
			Help:      "Total number of analysis backend attempts, labeled by backend and outcome.",
		}, []string{"backend", "outcome"}),

		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backend_attempt_duration_seconds",
			Help:      "Time spent in a single backend TryAnalyze call.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"backend"}),

		resultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "results_total",
			Help:      "Total number of analysis results returned, labeled by source.",
		}, []string{"source"}),

		analyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "analyze_duration_seconds",
			Help:      "End-to-end time of an Analyze call including every fallback step.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
	}

	for _, c := range []prometheus.Collector{m.attemptsTotal, m.attemptDuration, m.resultsTotal, m.analyzeDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAttempt implements analysis.Recorder. Skipped attempts have no duration.
func (m *Metrics) ObserveAttempt(backend string, outcome analysis.AttemptOutcome, duration time.Duration) {
	m.attemptsTotal.WithLabelValues(backend, string(outcome)).Inc()
	if outcome != analysis.AttemptSkipped {
		m.attemptDuration.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

// ObserveResult implements analysis.Recorder
func (m *Metrics) ObserveResult(source analysis.Source, duration time.Duration) {
	m.resultsTotal.WithLabelValues(string(source)).Inc()
	m.analyzeDuration.Observe(duration.Seconds())
}

var _ analysis.Recorder = (*Metrics)(nil)

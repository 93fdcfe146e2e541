// Package observability exports Prometheus metrics for cleaning runs.
//
// Metrics is fed the same event stream as websocket observers, so it
// measures exactly what clients see: runs started, ticks taken,
// terminations by reason, run duration and final floor coverage.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cleanbot/server/messages"
)

const metricsNamespace = "cleanbot"

const runSubsystem = "run"

// Metrics holds the Prometheus collectors for cleaning runs
type Metrics struct {
	// RunsStarted counts new_cleaner events.
	RunsStarted prometheus.Counter

	// ActiveRuns tracks runs that have started and not yet terminated.
	ActiveRuns prometheus.Gauge

	// Ticks counts is_cleaning events across all runs.
	Ticks prometheus.Counter

	// Terminations counts end_cleaning events.
	// Labels: reason (stuck, complete, tick_limit, stopped)
	Terminations *prometheus.CounterVec

	// DurationSeconds is the simulated time a run lasted.
	DurationSeconds prometheus.Histogram

	// Coverage is the fraction of floor tiles cleaned when a run ends.
	Coverage prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "started_total",
			Help:      "Total number of cleaning runs started",
		}),

		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "active",
			Help:      "Number of cleaning runs in progress",
		}),

		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "ticks_total",
			Help:      "Total simulation ticks across all runs",
		}),

		Terminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: runSubsystem,
				Name:      "terminations_total",
				Help:      "Total finished runs by termination reason",
			},
			[]string{"reason"},
		),

		DurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "duration_seconds",
			Help:      "Simulated duration of finished runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		Coverage: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "coverage_ratio",
			Help:      "Fraction of floor tiles cleaned when a run finished",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.99, 1},
		}),
	}
}

// Publish records a simulation event
func (m *Metrics) Publish(event messages.Event) {
	switch event.Type {
	case messages.MessageTypeCreated:
		m.RunsStarted.Inc()
		m.ActiveRuns.Inc()
	case messages.MessageTypeProgress:
		m.Ticks.Inc()
	case messages.MessageTypeTerminated:
		m.ActiveRuns.Dec()
		payload, ok := event.Payload.(messages.TerminatedPayload)
		if !ok {
			return
		}
		m.Terminations.WithLabelValues(payload.Reason).Inc()
		m.DurationSeconds.Observe(float64(payload.ElapsedTime) / 1000)
		coverage := 1.0
		if payload.Total > 0 {
			coverage = float64(payload.Cleaned) / float64(payload.Total)
		}
		m.Coverage.Observe(coverage)
	}
}

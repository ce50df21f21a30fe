// Package metrics provides Prometheus instrumentation for the routing
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shareseek/signal-engine/pkg/types"
)

// Metrics holds the pipeline collectors. All components share one instance
// registered on a single registry exposed at /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	Evaluations     *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	PipelineFaults  *prometheus.CounterVec
	EvalDuration    prometheus.Histogram
	FinalScores     prometheus.Histogram
	LiveSymbols     prometheus.Gauge
	ScorerColdStart *prometheus.CounterVec
}

// New creates and registers the pipeline collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "evaluations_total",
			Help:      "Routing evaluations started, by symbol.",
		}, []string{"symbol"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "decisions_total",
			Help:      "Terminal routing decisions, by status and rejection reason.",
		}, []string{"status", "reason"}),
		PipelineFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "pipeline_faults_total",
			Help:      "Evaluation passes aborted by a collaborator fault, by stage.",
		}, []string{"stage"}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalengine",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall-clock duration of one routing evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		FinalScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalengine",
			Name:      "final_score",
			Help:      "Blended final score of accepted signals.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		LiveSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "signalengine",
			Name:      "live_symbols",
			Help:      "Symbols currently promoted to live trading.",
		}),
		ScorerColdStart: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "scorer_cold_starts_total",
			Help:      "Scorer calls answered by an absent model, by scorer.",
		}, []string{"scorer"}),
	}

	m.Registry.MustRegister(
		m.Evaluations,
		m.Decisions,
		m.PipelineFaults,
		m.EvalDuration,
		m.FinalScores,
		m.LiveSymbols,
		m.ScorerColdStart,
	)
	return m
}

// ObserveDecision records a terminal decision.
func (m *Metrics) ObserveDecision(status types.SignalStatus, reason types.ReasonCode, finalScore float64) {
	m.Decisions.WithLabelValues(string(status), string(reason)).Inc()
	if status == types.StatusAccepted {
		m.FinalScores.Observe(finalScore)
	}
}

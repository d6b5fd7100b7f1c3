package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "floatchat"

// Pipeline Prometheus metrics.
var (
	// TurnsTotal counts finished questions by outcome: "answered", "degraded",
	// "clarification" or the error kind.
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Submitted questions by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	DegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Degraded answers by reason",
		},
		[]string{"reason"},
	)

	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Validator verdicts by kind",
		},
		[]string{"verdict"},
	)

	CapabilityAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_attempts_total",
			Help:      "External capability attempts by result",
		},
		[]string{"capability", "result"}, // "ok" / "retry" / "error"
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions held in memory",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(DegradationsTotal)
	prometheus.MustRegister(VerdictsTotal)
	prometheus.MustRegister(CapabilityAttemptsTotal)
	prometheus.MustRegister(ActiveSessions)
	pipelineMetricsRegistered = true
}

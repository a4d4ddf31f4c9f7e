package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examlens_pipeline_runs_total",
			Help: "Total number of chat pipeline runs by envelope type and error kind.",
		},
		[]string{"type", "error_kind"},
	)
	pipelineStageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examlens_pipeline_stage_duration_seconds",
			Help:    "Latency of each pipeline stage in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"stage", "outcome"},
	)
	safetyGateRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "examlens_safety_gate_rejections_total",
			Help: "Total number of synthesized statements rejected by the SELECT-only gate.",
		},
	)
	visualizationSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examlens_visualization_suppressed_total",
			Help: "Total number of visualization plans discarded, by reason.",
		},
		[]string{"reason"},
	)
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examlens_llm_calls_total",
			Help: "Total number of language-model calls by call site and outcome.",
		},
		[]string{"call_site", "outcome"},
	)
	llmCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examlens_llm_call_duration_seconds",
			Help:    "Language-model call latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"call_site"},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRunsTotal,
		pipelineStageSeconds,
		safetyGateRejectionsTotal,
		visualizationSuppressedTotal,
		llmCallsTotal,
		llmCallSeconds,
	)
}

func ObservePipelineRun(envelopeType, errorKind string) {
	pipelineRunsTotal.WithLabelValues(envelopeType, errorKind).Inc()
}

func ObserveStage(stage string, ok bool, elapsed time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	pipelineStageSeconds.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

func IncrementSafetyGateRejection() {
	safetyGateRejectionsTotal.Inc()
}

func IncrementVisualizationSuppressed(reason string) {
	visualizationSuppressedTotal.WithLabelValues(reason).Inc()
}

func ObserveLLMCall(callSite, outcome string, elapsed time.Duration) {
	llmCallsTotal.WithLabelValues(callSite, outcome).Inc()
	llmCallSeconds.WithLabelValues(callSite).Observe(elapsed.Seconds())
}

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_requests_total",
			Help: "Total number of insight requests by terminal outcome",
		},
		[]string{"outcome"},
	)

	PipelineStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Total number of stage failures by stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	SandboxExecutionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sandbox_executions_active",
			Help: "Number of synthesized programs currently executing",
		},
	)

	AnswerCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_cache_requests_total",
			Help: "Answer cache lookups by result",
		},
		[]string{"result"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reading outcomes.
const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
	OutcomeFailed    = "failed"
)

var (
	ReadingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarot_readings_total",
			Help: "Readings served, by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarot_pipeline_failures_total",
			Help: "Pipeline stage failures, by variant and error code",
		},
		[]string{"variant", "code"},
	)

	ProseViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarot_prose_length_violations_total",
			Help: "Generated prose fields outside their length ceilings",
		},
		[]string{"variant"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tarot_generation_duration_seconds",
			Help:    "Latency of the generation service call",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"variant", "strategy"},
	)
)

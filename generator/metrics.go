package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_generator_ai_requests_total",
			Help: "Total number of chat completion requests.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demo_generator_ai_request_duration_seconds",
			Help:    "Histogram of chat completion request durations.",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demo_generator_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demo_generator_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 16),
		},
		[]string{"model"},
	)
	continuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_generator_continuations_total",
			Help: "Continuation calls made for truncated generations.",
		},
		[]string{"model", "status"},
	)
	truncatedArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_generator_truncated_artifacts_total",
			Help: "Artifacts that were still truncated after continuations.",
		},
		[]string{"model"},
	)
)

func observeRequest(model, status string, d time.Duration) {
	aiRequestsTotal.With(prometheus.Labels{"model": model, "status": status}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": model}).Observe(d.Seconds())
}

func observeUsage(model string, u TokenUsage) {
	if u.TotalTokens == 0 {
		return
	}
	aiPromptTokens.With(prometheus.Labels{"model": model}).Observe(float64(u.PromptTokens))
	aiCompletionTokens.With(prometheus.Labels{"model": model}).Observe(float64(u.CompletionTokens))
}

func observeContinuation(model string, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	continuationsTotal.With(prometheus.Labels{"model": model, "status": status}).Inc()
}

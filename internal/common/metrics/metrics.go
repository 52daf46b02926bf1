// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_dispatch_attempts_total",
			Help: "Total number of per-channel dispatch attempts by outcome",
		},
		[]string{"type", "channel", "outcome"},
	)

	TemplateFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_template_fallbacks_total",
			Help: "Dispatches that rendered with the built-in fallback template",
		},
		[]string{"type", "channel"},
	)

	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notify_adapter_duration_seconds",
			Help: "Duration of channel adapter calls in seconds",
		},
		[]string{"channel"},
	)

	TriggerMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_trigger_matches_total",
			Help: "Recipients matched by trigger evaluation runs",
		},
		[]string{"trigger"},
	)

	TriggerDeduped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_trigger_deduped_total",
			Help: "Trigger matches skipped by the per-period dedupe guard",
		},
		[]string{"trigger"},
	)
)

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClicksNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_notified_total",
			Help: "Total number of clicks notified and confirmed",
		},
	)

	ClicksSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clicks_skipped_total",
			Help: "Total number of clicks skipped before sending",
		},
		[]string{"reason"},
	)

	ClicksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clicks_failed_total",
			Help: "Total number of click notifications that failed",
		},
		[]string{"error_code"},
	)

	ConfirmationGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_confirmation_gaps_total",
			Help: "Clicks accepted remotely but not confirmed locally",
		},
	)

	NotifyBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "notify_batch_duration_seconds",
			Help: "Duration of a full notification batch in seconds",
		},
	)

	TokensMinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_tokens_minted_total",
			Help: "Total number of bearer tokens minted (cache misses)",
		},
	)

	PromotionsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotions_cache_requests_total",
			Help: "Promotions cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

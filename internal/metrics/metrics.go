// Package metrics holds the Prometheus collectors for the recommender.
// Collectors register with the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values
const (
	PathVector   = "vector"
	PathFallback = "fallback"

	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeCacheHit = "cache_hit"

	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation requests served, by retrieval path",
		},
		[]string{"path"}, // "vector", "fallback"
	)

	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_fallbacks_total",
			Help: "Total number of recommendations served by the fallback path, by reason",
		},
		[]string{"reason"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// Embedding Metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Total number of embedding lookups, by outcome",
		},
		[]string{"outcome"}, // "ok", "degraded", "cache_hit"
	)

	// Index Maintenance Metrics
	ReindexItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reindex_items_total",
			Help: "Total number of catalog items processed by re-indexing, by outcome",
		},
		[]string{"outcome"}, // "indexed", "skipped", "failed"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordFallback counts a recommendation served from the fallback path.
func RecordFallback(reason string) {
	RecommendationFallbacks.WithLabelValues(reason).Inc()
}

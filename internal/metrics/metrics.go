// Package metrics registers the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Embedding provider
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osusume_provider_calls_total",
			Help: "Embedding provider calls by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "bad_shape"
	)

	ProviderLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osusume_provider_call_duration_seconds",
			Help:    "Duration of single embedding provider calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	EmbedFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "osusume_embed_failures_total",
			Help: "Embeddings that failed after exhausting retries or on an unusable response",
		},
	)

	MemoHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "osusume_embedding_memo_hits_total",
			Help: "In-process embedding memo hits",
		},
	)

	MemoMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "osusume_embedding_memo_misses_total",
			Help: "In-process embedding memo misses",
		},
	)

	// Index builder
	VectorResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osusume_vector_resolutions_total",
			Help: "Working-set vectors by how they were resolved",
		},
		[]string{"source"}, // "cached", "inline", "computed", "precomputed"
	)

	// Precompute
	PrecomputeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osusume_precompute_runs_total",
			Help: "Precompute runs by result",
		},
		[]string{"result"},
	)

	PrecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osusume_precompute_duration_seconds",
			Help:    "Duration of precompute runs",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	PrecomputeItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "osusume_precompute_items",
			Help: "Items persisted by the last successful precompute run",
		},
	)

	// Recommendations
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osusume_recommendations_total",
			Help: "Recommendation requests by result",
		},
		[]string{"result"}, // "ok", "empty_history", "invalid", "error"
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osusume_api_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osusume_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordProviderCall records one provider round trip.
func RecordProviderCall(outcome string, duration time.Duration) {
	ProviderCalls.WithLabelValues(outcome).Inc()
	ProviderLatency.Observe(duration.Seconds())
}

// RecordPrecompute records a finished precompute run.
func RecordPrecompute(duration time.Duration, items int, err error) {
	PrecomputeDuration.Observe(duration.Seconds())
	if err != nil {
		PrecomputeRuns.WithLabelValues("error").Inc()
		return
	}
	PrecomputeRuns.WithLabelValues("ok").Inc()
	PrecomputeItems.Set(float64(items))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

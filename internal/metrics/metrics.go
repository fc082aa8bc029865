// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package metrics provides Prometheus instrumentation for the recommendation
// engine: tier attempts and contributions, batch cache efficiency, outbound
// circuit breaker state, and HTTP endpoint latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Orchestrator metrics
	TierAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_tier_attempts_total",
			Help: "Total number of fetch attempts per tier",
		},
		[]string{"tier"},
	)

	TierItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_tier_items_total",
			Help: "Total number of items contributed per tier",
		},
		[]string{"tier"},
	)

	TierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_tier_failures_total",
			Help: "Total number of tier fetches that failed and were skipped",
		},
		[]string{"tier"},
	)

	Orchestrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_orchestrations_total",
			Help: "Total orchestration runs by outcome (success, empty, error, timeout)",
		},
		[]string{"outcome"},
	)

	OrchestrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_orchestration_duration_seconds",
			Help:    "Duration of full orchestration runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Local batch cache metrics
	BatchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_cache_hits_total",
			Help: "Total number of local batch cache hits",
		},
	)

	BatchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_cache_misses_total",
			Help: "Total number of local batch cache misses (including expired and corrupt entries)",
		},
	)

	BatchCacheCorruptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_cache_corrupt_entries_total",
			Help: "Total number of corrupt batch cache entries repaired by deletion",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through circuit breakers by result",
		},
		[]string{"name", "result"},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

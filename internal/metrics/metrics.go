// Package metrics exposes Prometheus collectors for the search engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceCalls counts upstream calls by source and outcome (ok, empty, error, cache).
	SourceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyfinder_source_calls_total",
			Help: "Upstream source calls by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// SourceLatency tracks upstream call duration.
	SourceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copyfinder_source_call_seconds",
			Help:    "Upstream source call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// HealthScore is the last recorded health score per source or instance.
	HealthScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "copyfinder_source_health_score",
			Help: "Last recorded health score by source or instance",
		},
		[]string{"source"},
	)

	// Searches counts pipeline runs by terminal reason.
	Searches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyfinder_searches_total",
			Help: "Search pipeline runs by terminal reason",
		},
		[]string{"reason"},
	)

	// SearchLatency tracks whole-pipeline duration.
	SearchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copyfinder_search_seconds",
			Help:    "Search pipeline duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8, 12, 20},
		},
	)

	// CacheLookups counts response and source cache lookups by layer and result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyfinder_cache_lookups_total",
			Help: "Cache lookups by layer and result",
		},
		[]string{"layer", "result"},
	)

	// BackfillLookups counts detail lookups by client and outcome.
	BackfillLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyfinder_backfill_lookups_total",
			Help: "Metrics backfill lookups by client and outcome",
		},
		[]string{"client", "outcome"},
	)

	// BreakerState mirrors the backfill circuit breaker (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "copyfinder_breaker_state",
			Help: "Circuit breaker state by name",
		},
		[]string{"name"},
	)
)

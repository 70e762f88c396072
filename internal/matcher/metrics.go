package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatcherRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_matcher_refresh_total",
		Help: "Total matcher refresh cycles, by outcome.",
	}, []string{"outcome"})

	MatcherPairsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_matcher_pairs_active",
		Help: "Number of currently matched, active market pairs.",
	})

	MatcherNewPairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_matcher_new_pairs_total",
		Help: "Total newly bound market pairs.",
	})

	MatcherRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_matcher_refresh_duration_seconds",
		Help:    "Wall-clock duration of a matcher refresh cycle.",
		Buckets: prometheus.DefBuckets,
	})

	MatcherVenueFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_matcher_venue_failures_total",
		Help: "Total list_markets failures during refresh, by venue.",
	}, []string{"venue"})

	SimilarityCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_matcher_similarity_cache_hits_total",
		Help: "Total title-similarity score lookups served from cache.",
	})

	SimilarityCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_matcher_similarity_cache_misses_total",
		Help: "Total title-similarity scores recomputed after a cache miss.",
	})
)

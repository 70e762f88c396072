package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_scanner_opportunities_emitted_total",
		Help: "Total opportunity records emitted, by strategy classification.",
	}, []string{"strategy"})

	OpportunitiesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_scanner_opportunities_skipped_total",
		Help: "Total combinations skipped during scanning, by reason.",
	}, []string{"reason"})

	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_scanner_scan_duration_seconds",
		Help:    "Duration of one full pair-set scan.",
		Buckets: prometheus.DefBuckets,
	})

	EffectiveEdgeObserved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_scanner_effective_edge_observed",
		Help:    "Distribution of effective edge across all non-skipped combinations.",
		Buckets: []float64{-0.05, 0, 0.01, 0.02, 0.04, 0.06, 0.1, 0.2, 0.5},
	})
)

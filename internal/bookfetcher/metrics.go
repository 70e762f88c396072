package bookfetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbengine_bookfetcher_fetch_duration_seconds",
		Help:    "Duration of one full scan-frame fetch across both venues (observed with venue label \"all\").",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	BatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_bookfetcher_batch_errors_total",
		Help: "Total batch fetch errors, by venue.",
	}, []string{"venue"})

	StaleSnapshotsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_bookfetcher_stale_snapshots_dropped_total",
		Help: "Total book snapshots dropped from a frame for exceeding max_book_age.",
	})

	FrameTokenCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_bookfetcher_frame_token_count",
		Help: "Number of tokens with a fresh snapshot in the most recent scan frame.",
	})
)

package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_supervisor_scan_cycles_total",
		Help: "Completed scan cycles (fetch frame, scan, dispatch).",
	})

	ScanCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_supervisor_scan_cycle_duration_seconds",
		Help:    "Wall-clock duration of one full scan cycle.",
		Buckets: prometheus.DefBuckets,
	})

	BothVenuesDownTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_supervisor_both_venues_down_total",
		Help: "Scan cycles skipped because both venues have been unreachable past the grace period.",
	})

	ImmediateDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_supervisor_immediate_dispatched_total",
		Help: "Immediate-strategy opportunities handed to the executor (including ones dropped for no free slot).",
	})

	ImmediateSlotUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_supervisor_immediate_slot_unavailable_total",
		Help: "Immediate-strategy opportunities skipped because no concurrency slot was free.",
	})

	WatchedTokensGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_supervisor_watched_tokens",
		Help: "Number of distinct tokens fetched in the most recent scan cycle.",
	})

	BalancePausedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arbengine_supervisor_balance_paused",
		Help: "1 if dispatch is currently paused for this venue due to insufficient balance, else 0.",
	}, []string{"venue"})
)

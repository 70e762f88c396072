package immediate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_immediate_executions_total",
		Help: "Total immediate-strategy executions attempted, by outcome.",
	}, []string{"outcome"})

	FirstLegAbortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_immediate_first_leg_aborts_total",
		Help: "First-leg fills below min_hedge_size, treated as abort.",
	})

	DeficitsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_immediate_deficits_emitted_total",
		Help: "Second-leg under-fills handed to reconciliation.",
	})

	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_immediate_execution_duration_seconds",
		Help:    "Wall-clock duration of one immediate execution, first leg through second leg.",
		Buckets: prometheus.DefBuckets,
	})

	ConcurrencySlotsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_immediate_concurrency_slots_in_use",
		Help: "Number of immediate executions currently in flight.",
	})

	InsufficientDepthAtCapTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_immediate_insufficient_depth_at_cap_total",
		Help: "Hedge legs where no tick within the slippage cap had enough indexed depth to cover the fill.",
	})
)

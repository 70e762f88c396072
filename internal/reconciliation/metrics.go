package reconciliation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeficitsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_reconciliation_deficits_resolved_total",
		Help: "Deficits fully hedged within max_hedge_attempts and the remaining-edge budget.",
	})

	DeficitsUnresolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_reconciliation_deficits_unresolved_total",
		Help: "Deficits surfaced to the operator as residual exposure.",
	})

	HedgeAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_reconciliation_hedge_attempts_total",
		Help: "Total progressively-worse IOC hedge attempts placed.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_reconciliation_queue_depth",
		Help: "Number of deficit events currently queued for reconciliation.",
	})

	ResidualExposureShares = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_reconciliation_residual_exposure_shares",
		Help: "Cumulative unresolved deficit shares across all reconciliation attempts, surfaced to the operator.",
	})
)

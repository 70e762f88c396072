package liquidity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketsOpenGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_liquidity_tickets_open",
		Help: "Number of liquidity-strategy tickets currently tracked (not IDLE/DONE).",
	})

	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_liquidity_state_transitions_total",
		Help: "Total liquidity ticket state transitions, by target state.",
	}, []string{"state"})

	RepricesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_liquidity_reprices_total",
		Help: "Total resting-order reprice/resubmit cycles.",
	})

	DeficitsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_liquidity_deficits_emitted_total",
		Help: "Total deficit events handed to reconciliation from the liquidity strategy.",
	})
)

package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CircuitBreakerEnabled indicates whether the Polymarket balance
	// breaker currently allows Polymarket-leg order placement.
	CircuitBreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_polymarket_breaker_enabled",
		Help: "Whether the Polymarket balance breaker allows order placement (1=enabled, 0=disabled)",
	})

	// CircuitBreakerBalance tracks the last checked on-chain USDC balance.
	CircuitBreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_polymarket_breaker_balance_usdc",
		Help: "Last checked on-chain USDC balance backing Polymarket trading",
	})

	// CircuitBreakerDisableThreshold tracks the current threshold for disabling execution.
	CircuitBreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_polymarket_breaker_disable_threshold_usdc",
		Help: "Current USDC balance threshold for disabling Polymarket order placement",
	})

	// CircuitBreakerEnableThreshold tracks the current threshold for re-enabling execution.
	CircuitBreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_polymarket_breaker_enable_threshold_usdc",
		Help: "Current USDC balance threshold for re-enabling Polymarket order placement, above the disable threshold by the hysteresis ratio",
	})

	// CircuitBreakerAvgTradeSize tracks the rolling average Polymarket trade size.
	CircuitBreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_polymarket_breaker_avg_trade_size_usdc",
		Help: "Rolling average size of recent filled Polymarket legs, in USDC notional",
	})

	// CircuitBreakerStateChanges tracks the number of times the breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_polymarket_breaker_state_changes_total",
		Help: "Total number of times the Polymarket balance breaker changed state",
	})

	// CircuitBreakerCheckDuration tracks the time taken to check balance.
	CircuitBreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_polymarket_breaker_check_duration_seconds",
		Help:    "Time taken to fetch and evaluate the on-chain USDC balance",
		Buckets: prometheus.DefBuckets,
	})
)

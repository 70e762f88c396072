package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// MATICBalance tracks the wallet's MATIC balance, which pays gas for
	// Polymarket's CTF Exchange order settlement.
	MATICBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_wallet_matic_balance",
		Help: "Current MATIC balance in the Polymarket wallet (native units)",
	})

	// USDCBalance tracks the on-chain USDC balance the balance breaker
	// evaluates against its disable/enable thresholds.
	USDCBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_wallet_usdc_balance",
		Help: "Current on-chain USDC balance backing Polymarket trading (USD)",
	})

	// USDCAllowance tracks the USDC allowance approved to the CTF Exchange
	// contract; an allowance below the intended order size blocks fills
	// even when the balance itself is sufficient.
	USDCAllowance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_wallet_usdc_allowance",
		Help: "USDC allowance approved to the CTF Exchange contract (USD)",
	})

	// UpdateErrorsTotal tracks failed on-chain balance fetches.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_wallet_update_errors_total",
		Help: "Total number of failed wallet balance fetch attempts",
	})

	// UpdateDuration tracks the time taken to fetch on-chain balances.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_wallet_update_duration_seconds",
		Help:    "Time taken to fetch on-chain wallet balances (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful
	// balance fetch.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_wallet_last_update_timestamp",
		Help: "Unix timestamp of the last successful wallet balance fetch",
	})
)

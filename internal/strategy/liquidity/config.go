// Package liquidity implements the liquidity-making strategy (spec §4.G):
// for opportunities between θ_liquidity and θ_immediate, rest a GTC order
// one tick better than best on one venue, and hedge with an IOC on the
// other venue as fills accumulate. Grounded on
// original_source/arbitrage_core/models.py's LiquidityOrderState field set
// (translated into the explicit Go state machine in ticket.go) and the
// internal/execution/executor.go dispatch shape.
package liquidity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// TradeLogWriter is implemented by whatever sink persists executed legs.
type TradeLogWriter interface {
	WriteTrade(ctx context.Context, entry types.TradeLogEntry) error
}

// DeficitSink receives deficit events for the Reconciliation routine.
type DeficitSink interface {
	Submit(ctx context.Context, event types.DeficitEvent) error
}

// BalanceBreaker is the subset of internal/circuitbreaker.BalanceCircuitBreaker
// consumed here: every Polymarket-side fill feeds the breaker's rolling
// trade-size window so its disable/enable thresholds track how this venue
// is actually being traded, not a static config value.
type BalanceBreaker interface {
	RecordTrade(tradeSize float64)
}

// Config configures the Manager.
type Config struct {
	TargetSize          float64       // LIQUIDITY_TARGET_SIZE, default 250
	MinSize             float64       // remainder floor below which a partial fill is canceled, default 5
	ExitEdgeDelta       float64       // θ_liquidity_exit = θ_liquidity - ExitEdgeDelta, default 0.005
	RepriceCooldown     time.Duration // default 5s, spec §4.G "rate-limited to one per 5 seconds per ticket"
	OrderPollInterval   time.Duration // default 100ms
	HedgePollTimeout    time.Duration // default 2s

	LiquidityMinAnnualized float64 // θ_liquidity, needed to derive the exit threshold

	Opinion           venue.Client
	Polymarket        venue.Client
	Fees              *fees.Model
	Deficits          DeficitSink
	TradeLog          TradeLogWriter
	PolymarketBreaker BalanceBreaker // optional
	Logger            *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.TargetSize <= 0 {
		c.TargetSize = 250
	}
	if c.MinSize <= 0 {
		c.MinSize = 5
	}
	if c.ExitEdgeDelta <= 0 {
		c.ExitEdgeDelta = 0.005
	}
	if c.RepriceCooldown <= 0 {
		c.RepriceCooldown = 5 * time.Second
	}
	if c.OrderPollInterval <= 0 {
		c.OrderPollInterval = 100 * time.Millisecond
	}
	if c.HedgePollTimeout <= 0 {
		c.HedgePollTimeout = 2 * time.Second
	}
	if c.LiquidityMinAnnualized <= 0 {
		c.LiquidityMinAnnualized = 0.20
	}
	return c
}

// Package immediate implements the immediate-crossing strategy (spec
// §4.F): given an opportunity whose effective edge clears θ_immediate, it
// places an IOC order on the shallower-depth venue, waits for a terminal
// fill, then places a matching IOC hedge on the other venue sized to the
// actual first-leg fill. Grounded on the prior adapter's
// internal/execution/executor.go dispatch shape and
// internal/execution/fill_tracker.go's poll-with-backoff, both folded here
// into internal/venue.PollUntilTerminal.
package immediate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// TradeLogWriter is implemented by whatever sink persists executed legs
// (spec's "Persisted state": append-only JSON-lines trade log).
type TradeLogWriter interface {
	WriteTrade(ctx context.Context, entry types.TradeLogEntry) error
}

// DeficitSink receives deficit events for the Reconciliation routine to
// consume (spec §4.F step 8 / §4.H).
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

// DepthProvider is the subset of internal/bookfetcher.Fetcher consumed
// here: how much size sits at or better than a candidate hedge price, so
// the slippage-cap walk (spec §4.F step 7) can stop at the shallowest
// tick that can actually absorb the fill instead of always crossing the
// full cap.
type DepthProvider interface {
	DepthAtOrBetterAsk(token types.Token, maxPrice float64) float64
}

// Config configures the Executor.
type Config struct {
	MaxConcurrent      int           // K_immediate, default 2
	MinHedgeSize       float64       // default 1 share
	SlippageCapTicks   int           // default 3 — how many ticks worse the hedge leg may cross
	OrderPollInterval  time.Duration // default 100ms
	OrderPollTimeout   time.Duration // default 2s
	SuspiciousCooldown time.Duration // supplemented per-pair cooldown after a suspicious/aborted attempt, default 60s

	Opinion           venue.Client
	Polymarket        venue.Client
	Fees              *fees.Model
	Deficits          DeficitSink
	TradeLog          TradeLogWriter
	PolymarketBreaker BalanceBreaker // optional
	Depth             DepthProvider  // optional; falls back to the full slippage cap when unset
	Logger            *zap.Logger
}

// withDefaults fills in spec §4.F/§6 defaults for zero-valued fields.
func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.MinHedgeSize <= 0 {
		c.MinHedgeSize = 1
	}
	if c.SlippageCapTicks <= 0 {
		c.SlippageCapTicks = 3
	}
	if c.OrderPollInterval <= 0 {
		c.OrderPollInterval = 100 * time.Millisecond
	}
	if c.OrderPollTimeout <= 0 {
		c.OrderPollTimeout = 2 * time.Second
	}
	if c.SuspiciousCooldown <= 0 {
		c.SuspiciousCooldown = 60 * time.Second
	}
	return c
}

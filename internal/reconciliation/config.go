// Package reconciliation implements the deficit-event consumer named in
// spec §4.H: a dedicated sink for second-leg under-fills from both the
// immediate and liquidity strategies. For each deficit it attempts
// progressively more aggressive IOC hedges (price = best ask + k·tick)
// until the deficit is filled or the cumulative slippage exceeds the
// opportunity's remaining edge budget, per spec §4.F step 8. Grounded on
// original_source/arbitrage.py's MAX_HEDGE_ATTEMPTS slippage-guard pattern
// and internal/arbitrage/detector.go channel-consumer shape.
package reconciliation

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

// Config configures the Consumer.
type Config struct {
	MaxHedgeAttempts int           // default 5
	QueueSize        int           // default 256
	Workers          int           // concurrent reconciliation attempts, default 4
	PollInterval     time.Duration // default 100ms
	PollTimeout      time.Duration // default 2s
	FillTolerance    float64       // shares below which a deficit is considered resolved, default 0.01

	Opinion    venue.Client
	Polymarket venue.Client
	Fees       *fees.Model
	TradeLog   TradeLogWriter
	Logger     *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxHedgeAttempts <= 0 {
		c.MaxHedgeAttempts = 5
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 2 * time.Second
	}
	if c.FillTolerance <= 0 {
		c.FillTolerance = 0.01
	}
	return c
}

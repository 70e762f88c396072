// Package supervisor implements the orchestrator named in spec §4.H/§5:
// it owns the scan cadence, the matcher refresh loop, dispatch to the
// immediate and liquidity strategies, the reconciliation consumer, and
// graceful shutdown. Grounded on internal/app package
// (app.go's component set, run.go's startComponents/waitForShutdown split,
// shutdown.go's dependency-ordered teardown), generalized from a single
// discovery/orderbook/detector/executor chain to the two-venue
// matcher/bookfetcher/scanner/{immediate,liquidity}/reconciliation chain.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/matcher"
	"github.com/mselser95/arbengine/internal/reconciliation"
	"github.com/mselser95/arbengine/internal/scanner"
	"github.com/mselser95/arbengine/internal/strategy/immediate"
	"github.com/mselser95/arbengine/internal/strategy/liquidity"
	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// BookFetcher is the subset of internal/bookfetcher.Fetcher the Supervisor
// drives directly.
type BookFetcher interface {
	FetchFrame(ctx context.Context, tokens []types.Token) types.ScanFrame
}

// Config wires the fully constructed components together. The Supervisor
// does not construct any of them; cmd/ is responsible for wiring each
// component's own Config (venue clients, fee model, logger) before handing
// the assembled component here.
type Config struct {
	Matcher       *matcher.Matcher
	BookFetcher   BookFetcher
	Scanner       *scanner.Scanner
	Immediate     *immediate.Executor
	Liquidity     *liquidity.Manager
	Reconciler    *reconciliation.Consumer

	ScanInterval time.Duration // spec: scan cadence, default 2s

	// Balance gating (spec's error-handling table, "Insufficient balance"
	// row): Opinion/Polymarket are optional here even though the same
	// clients are already threaded through Immediate/Liquidity/Reconciler,
	// because every opportunity needs both legs — pausing either venue's
	// balance pauses dispatch entirely rather than one side of a pair.
	Opinion              venue.Client
	Polymarket           venue.Client
	BalanceAsset         string        // asset checked in each venue's balance list, default "USDC"
	MinOpinionBalance    float64       // default 0 (disabled)
	MinPolymarketBalance float64       // default 0 (disabled)
	BalanceCheckInterval time.Duration // default 30s

	// PolymarketBreaker layers the hysteresis-based on-chain balance
	// breaker (internal/circuitbreaker) on top of the plain threshold
	// check above. Optional; nil disables the extra gate.
	PolymarketBreaker interface{ IsEnabled() bool }

	// Broadcaster mirrors every scan cycle's opportunities out to the
	// dashboard bridge (pkg/websocket). Optional.
	Broadcaster interface {
		Broadcast(opportunities []types.Opportunity, halted bool)
	}

	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 2 * time.Second
	}
	if c.BalanceAsset == "" {
		c.BalanceAsset = "USDC"
	}
	if c.BalanceCheckInterval <= 0 {
		c.BalanceCheckInterval = 30 * time.Second
	}
	return c
}

func (c Config) validate() error {
	if c.Matcher == nil {
		return fmt.Errorf("supervisor: matcher required")
	}
	if c.BookFetcher == nil {
		return fmt.Errorf("supervisor: book fetcher required")
	}
	if c.Scanner == nil {
		return fmt.Errorf("supervisor: scanner required")
	}
	if c.Immediate == nil {
		return fmt.Errorf("supervisor: immediate executor required")
	}
	if c.Liquidity == nil {
		return fmt.Errorf("supervisor: liquidity manager required")
	}
	if c.Reconciler == nil {
		return fmt.Errorf("supervisor: reconciliation consumer required")
	}
	return nil
}

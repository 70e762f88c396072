package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/scanner"
	"github.com/mselser95/arbengine/pkg/types"
)

// Supervisor is the main application orchestrator: it drives the scan
// cadence, dispatches classified opportunities to the immediate and
// liquidity strategies, and owns graceful shutdown of every long-running
// component underneath it.
type Supervisor struct {
	cfg Config

	logger *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	haltedMu sync.RWMutex
	halted   bool

	opinionPaused    atomic.Bool
	polymarketPaused atomic.Bool

	opportunitiesMu sync.RWMutex
	opportunities   []types.Opportunity
}

// LastOpportunities returns the opportunity list from the most recently
// completed scan cycle, for the HTTP status endpoint.
func (s *Supervisor) LastOpportunities() []types.Opportunity {
	s.opportunitiesMu.RLock()
	defer s.opportunitiesMu.RUnlock()
	out := make([]types.Opportunity, len(s.opportunities))
	copy(out, s.opportunities)
	return out
}

func (s *Supervisor) setLastOpportunities(opps []types.Opportunity) {
	s.opportunitiesMu.Lock()
	s.opportunities = opps
	s.opportunitiesMu.Unlock()
}

// New constructs a Supervisor.
func New(cfg Config) (*Supervisor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{cfg: cfg, logger: logger}, nil
}

// Halted reports whether the Supervisor has paused new opportunity
// dispatch because both venues have been unreachable past the matcher's
// grace period, per spec §4.B's failure policy.
func (s *Supervisor) Halted() bool {
	s.haltedMu.RLock()
	defer s.haltedMu.RUnlock()
	return s.halted
}

func (s *Supervisor) setHalted(v bool) {
	s.haltedMu.Lock()
	defer s.haltedMu.Unlock()
	s.halted = v
}

// watchedTokens flattens every active pair's four tokens into the set the
// Book Fetcher needs for the next frame.
func watchedTokens(pairs []types.MarketPair) []types.Token {
	tokens := make([]types.Token, 0, len(pairs)*4)
	for _, p := range pairs {
		if !p.Active() {
			continue
		}
		tokens = append(tokens, p.OpinionYes, p.OpinionNo, p.PolymarketYes, p.PolymarketNo)
	}
	return tokens
}

// scanOnce implements one cycle of spec §4.H's main loop: fetch a fresh
// frame for every watched token, scan for opportunities, then dispatch
// immediate opportunities to the executor and reconcile liquidity tickets
// against the newly scanned opportunities.
func (s *Supervisor) scanOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		ScanCyclesTotal.Inc()
		ScanCycleDuration.Observe(time.Since(start).Seconds())
	}()

	if s.cfg.Matcher.BothVenuesDown(time.Now()) {
		s.setHalted(true)
		BothVenuesDownTotal.Inc()
		s.logger.Warn("supervisor-halted-both-venues-down")
		return
	}
	s.setHalted(false)

	if !s.venuesFunded() {
		return
	}

	pairs := s.cfg.Matcher.Snapshot()
	tokens := watchedTokens(pairs)
	WatchedTokensGauge.Set(float64(len(tokens)))
	if len(tokens) == 0 {
		return
	}

	frame := s.cfg.BookFetcher.FetchFrame(ctx, tokens)
	opps := s.cfg.Scanner.Scan(pairs, frame)
	s.setLastOpportunities(opps)

	if s.cfg.Broadcaster != nil {
		s.cfg.Broadcaster.Broadcast(opps, s.Halted())
	}

	s.dispatchImmediate(ctx, scanner.RankImmediate(opps))

	liquidityOpps := scanner.RankLiquidity(opps)
	s.cfg.Liquidity.Reconcile(ctx, liquidityOpps, frame)
}

// dispatchImmediate hands ranked immediate opportunities to the executor,
// skipping ones still in their post-abort cooldown and ones for which no
// concurrency slot is currently free (they simply wait for the next scan
// frame, per spec §5's "bounded, not queued" concurrency policy).
func (s *Supervisor) dispatchImmediate(ctx context.Context, opps []types.Opportunity) {
	now := time.Now()
	for _, opp := range opps {
		if s.cfg.Immediate.InCooldown(opp, now) {
			continue
		}
		ImmediateDispatchedTotal.Inc()
		if !s.cfg.Immediate.TryAcquire() {
			ImmediateSlotUnavailableTotal.Inc()
			continue
		}
		opp := opp
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cfg.Immediate.Execute(ctx, opp)
		}()
	}
}

package immediate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// Executor runs the immediate-crossing strategy for opportunities handed
// to it, bounding parallelism to Config.MaxConcurrent (K_immediate) and
// applying a per-(pair,combination) cooldown after a suspicious or aborted
// attempt so the same misprint doesn't get retried every scan frame — a
// supplement not spelled out in spec §4.F's algorithm, grounded on the
// the circuit-breaker hysteresis idea of "don't immediately retry
// what just failed."
type Executor struct {
	cfg Config

	slots chan struct{}

	cooldownMu sync.Mutex
	cooldown   map[string]time.Time

	logger *zap.Logger
}

// New constructs an Executor.
func New(cfg Config) (*Executor, error) {
	cfg = cfg.withDefaults()
	if cfg.Opinion == nil || cfg.Polymarket == nil {
		return nil, fmt.Errorf("immediate: both venue clients required")
	}
	if cfg.Fees == nil {
		return nil, fmt.Errorf("immediate: fee model required")
	}
	if cfg.Deficits == nil {
		return nil, fmt.Errorf("immediate: deficit sink required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Executor{
		cfg:      cfg,
		slots:    make(chan struct{}, cfg.MaxConcurrent),
		cooldown: make(map[string]time.Time),
		logger:   cfg.Logger,
	}, nil
}

func cooldownKey(opp types.Opportunity) string {
	return opp.Pair.ID + ":" + string(opp.Combination)
}

// InCooldown reports whether opp's (pair, combination) is still in its
// post-abort cooldown window, so the Supervisor can skip re-dispatching it
// without consuming a concurrency slot.
func (e *Executor) InCooldown(opp types.Opportunity, now time.Time) bool {
	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()
	until, ok := e.cooldown[cooldownKey(opp)]
	return ok && now.Before(until)
}

func (e *Executor) setCooldown(opp types.Opportunity) {
	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()
	e.cooldown[cooldownKey(opp)] = time.Now().Add(e.cfg.SuspiciousCooldown)
}

// TryAcquire attempts to reserve one of the K_immediate concurrency slots
// without blocking; the Supervisor calls this before spawning the
// execution goroutine so a full pool simply defers the opportunity to the
// next scan frame instead of piling up goroutines.
func (e *Executor) TryAcquire() bool {
	select {
	case e.slots <- struct{}{}:
		ConcurrencySlotsInUse.Inc()
		return true
	default:
		return false
	}
}

func (e *Executor) release() {
	<-e.slots
	ConcurrencySlotsInUse.Dec()
}

// Execute runs one immediate-strategy attempt for opp to completion. The
// caller must have already reserved a slot via TryAcquire; Execute always
// releases it before returning.
func (e *Executor) Execute(ctx context.Context, opp types.Opportunity) {
	defer e.release()

	start := time.Now()
	defer func() { ExecutionDuration.Observe(time.Since(start).Seconds()) }()

	if opp.Suspicious {
		e.setCooldown(opp)
		ExecutionsTotal.WithLabelValues("suspicious").Inc()
		e.logger.Warn("immediate-suspicious-edge-skipped",
			zap.String("pair-id", opp.Pair.ID),
			zap.Float64("effective-edge", opp.EffectiveEdge))
		return
	}

	firstVenue, firstToken, firstAsk, secondVenue, secondToken, secondAsk := e.chooseFirstVenue(opp)

	firstClient := e.clientFor(firstVenue)
	secondClient := e.clientFor(secondVenue)

	quantity := opp.SizeCap
	firstOrderQty, _ := e.cfg.Fees.SizeForPlatform(firstVenue, firstAsk, quantity)

	firstTicket := types.OrderTicket{
		Venue:         firstVenue,
		Token:         firstToken,
		Side:          types.SideBuy,
		TargetFillQty: quantity,
		OrderQty:      firstClient.RoundToTick(firstToken, firstOrderQty),
		LimitPrice:    firstAsk,
		TIF:           types.TIF_IOC,
		SubmittedAt:   time.Now(),
	}

	firstOrderID, _, err := firstClient.PlaceOrder(ctx, firstTicket)
	if err != nil {
		ExecutionsTotal.WithLabelValues("first_leg_error").Inc()
		e.logger.Error("immediate-first-leg-place-failed",
			zap.String("pair-id", opp.Pair.ID),
			zap.String("venue", string(firstVenue)),
			zap.Error(err))
		return
	}

	firstFinal, err := venue.PollUntilTerminal(ctx, firstClient, firstOrderID, e.cfg.OrderPollInterval, e.cfg.OrderPollTimeout)
	if err != nil {
		ExecutionsTotal.WithLabelValues("first_leg_poll_error").Inc()
		e.logger.Error("immediate-first-leg-poll-failed",
			zap.String("pair-id", opp.Pair.ID),
			zap.String("order-id", firstOrderID),
			zap.Error(err))
		return
	}

	e.logTrade(ctx, opp, firstFinal, firstVenue, firstToken)

	f1 := e.cfg.Fees.Received(firstVenue, firstAsk, firstFinal.FilledQty)
	if f1 < e.cfg.MinHedgeSize {
		FirstLegAbortsTotal.Inc()
		ExecutionsTotal.WithLabelValues("first_leg_underfilled").Inc()
		e.setCooldown(opp)
		e.logger.Info("immediate-first-leg-underfilled-abort",
			zap.String("pair-id", opp.Pair.ID),
			zap.Float64("filled", f1),
			zap.Float64("min-hedge-size", e.cfg.MinHedgeSize))
		return
	}

	secondLimitPrice := e.secondLegLimitPrice(secondClient, secondToken, secondAsk, f1)
	secondOrderQty, _ := e.cfg.Fees.SizeForPlatform(secondVenue, secondAsk, f1)

	secondTicket := types.OrderTicket{
		Venue:         secondVenue,
		Token:         secondToken,
		Side:          types.SideBuy,
		TargetFillQty: f1,
		OrderQty:      secondClient.RoundToTick(secondToken, secondOrderQty),
		LimitPrice:    secondLimitPrice,
		TIF:           types.TIF_IOC,
		SubmittedAt:   time.Now(),
	}

	secondOrderID, _, err := secondClient.PlaceOrder(ctx, secondTicket)
	if err != nil {
		e.emitDeficit(ctx, opp, secondVenue, secondToken, f1, secondAsk)
		ExecutionsTotal.WithLabelValues("second_leg_error").Inc()
		e.logger.Error("immediate-second-leg-place-failed",
			zap.String("pair-id", opp.Pair.ID),
			zap.String("venue", string(secondVenue)),
			zap.Error(err))
		return
	}

	secondFinal, err := venue.PollUntilTerminal(ctx, secondClient, secondOrderID, e.cfg.OrderPollInterval, e.cfg.OrderPollTimeout)
	if err != nil {
		e.emitDeficit(ctx, opp, secondVenue, secondToken, f1, secondAsk)
		ExecutionsTotal.WithLabelValues("second_leg_poll_error").Inc()
		e.logger.Error("immediate-second-leg-poll-failed",
			zap.String("pair-id", opp.Pair.ID),
			zap.String("order-id", secondOrderID),
			zap.Error(err))
		return
	}

	e.logTrade(ctx, opp, secondFinal, secondVenue, secondToken)

	f2 := e.cfg.Fees.Received(secondVenue, secondAsk, secondFinal.FilledQty)
	if f2 < f1 {
		e.emitDeficit(ctx, opp, secondVenue, secondToken, f1-f2, secondAsk)
		ExecutionsTotal.WithLabelValues("second_leg_underfilled").Inc()
		return
	}

	ExecutionsTotal.WithLabelValues("filled").Inc()
	e.logger.Info("immediate-execution-complete",
		zap.String("pair-id", opp.Pair.ID),
		zap.Float64("first-filled", f1),
		zap.Float64("second-filled", f2))
}

// chooseFirstVenue picks the venue with shallower depth at the best ask as
// the first leg, per spec §4.F step 2 ("reduces cancellation risk on the
// deeper side").
func (e *Executor) chooseFirstVenue(opp types.Opportunity) (firstVenue types.Venue, firstToken types.Token, firstAsk float64, secondVenue types.Venue, secondToken types.Token, secondAsk float64) {
	if opp.OpinionAskDepth <= opp.PolymarketAskDepth {
		return types.VenueOpinion, opp.OpinionToken, opp.OpinionAskPrice,
			types.VenuePolymarket, opp.PolymarketToken, opp.PolymarketAskPrice
	}
	return types.VenuePolymarket, opp.PolymarketToken, opp.PolymarketAskPrice,
		types.VenueOpinion, opp.OpinionToken, opp.OpinionAskPrice
}

func (e *Executor) clientFor(v types.Venue) venue.Client {
	if v == types.VenueOpinion {
		return e.cfg.Opinion
	}
	return e.cfg.Polymarket
}

// secondLegLimitPrice walks the slippage cap tick-by-tick and stops at the
// first price whose indexed depth-at-or-better already covers qty, per
// spec §4.F step 7. Falls back to the full slippage cap when no depth
// provider is configured or no tick within the cap has enough depth.
func (e *Executor) secondLegLimitPrice(secondClient venue.Client, secondToken types.Token, secondAsk, qty float64) float64 {
	tick := tickSizeOf(secondToken)
	capPrice := secondAsk + float64(e.cfg.SlippageCapTicks)*tick
	if e.cfg.Depth == nil {
		return secondClient.RoundToTick(secondToken, capPrice)
	}
	for i := 0; i <= e.cfg.SlippageCapTicks; i++ {
		price := secondAsk + float64(i)*tick
		if e.cfg.Depth.DepthAtOrBetterAsk(secondToken, price) >= qty {
			return secondClient.RoundToTick(secondToken, price)
		}
	}
	InsufficientDepthAtCapTotal.Inc()
	return secondClient.RoundToTick(secondToken, capPrice)
}

func tickSizeOf(t types.Token) float64 {
	if t.TickSize <= 0 {
		return 0.01
	}
	return t.TickSize
}

func (e *Executor) emitDeficit(ctx context.Context, opp types.Opportunity, hedgeVenue types.Venue, hedgeToken types.Token, deficitQty, bestAsk float64) {
	if deficitQty <= 0 {
		return
	}
	DeficitsEmittedTotal.Inc()
	err := e.cfg.Deficits.Submit(ctx, types.DeficitEvent{
		HedgeVenue:    hedgeVenue,
		HedgeToken:    hedgeToken,
		DeficitQty:    deficitQty,
		BestAskAtEmit: bestAsk,
		RemainingEdge: opp.RawEdge - 0.005, // max_slippage_edge, spec §4.F step 8
		EmittedAt:     time.Now(),
	})
	if err != nil {
		e.logger.Error("immediate-deficit-submit-failed",
			zap.String("pair-id", opp.Pair.ID),
			zap.Error(err))
	}
}

func (e *Executor) logTrade(ctx context.Context, opp types.Opportunity, ticket types.OrderTicket, v types.Venue, token types.Token) {
	if v == types.VenuePolymarket && e.cfg.PolymarketBreaker != nil && ticket.FilledQty > 0 {
		e.cfg.PolymarketBreaker.RecordTrade(ticket.AvgFillPrice * ticket.FilledQty)
	}

	if e.cfg.TradeLog == nil {
		return
	}
	fee := 0.0
	if v == types.VenueOpinion {
		nominal := ticket.LimitPrice * ticket.FilledQty * e.cfg.Fees.OpinionFeeRate(ticket.LimitPrice)
		fee = nominal
	}
	entry := types.TradeLogEntry{
		Timestamp:     time.Now(),
		Venue:         v,
		TokenID:       token.TokenID,
		Outcome:       token.Outcome,
		Side:          types.SideBuy,
		OrderQty:      ticket.OrderQty,
		LimitPrice:    ticket.LimitPrice,
		FilledQty:     ticket.FilledQty,
		AvgFillPrice:  ticket.AvgFillPrice,
		Fee:           fee,
		OpportunityID: opp.ID,
	}
	if err := e.cfg.TradeLog.WriteTrade(ctx, entry); err != nil {
		e.logger.Warn("immediate-trade-log-write-failed", zap.Error(err))
	}
}

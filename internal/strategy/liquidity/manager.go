package liquidity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// Manager tracks one ticket per (pair, combination) currently resting or
// hedging, and advances every ticket's state machine once per scan frame
// via Reconcile.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	tickets map[string]*ticket

	logger *zap.Logger
}

// New constructs a Manager.
func New(cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()
	if cfg.Opinion == nil || cfg.Polymarket == nil {
		return nil, fmt.Errorf("liquidity: both venue clients required")
	}
	if cfg.Fees == nil {
		return nil, fmt.Errorf("liquidity: fee model required")
	}
	if cfg.Deficits == nil {
		return nil, fmt.Errorf("liquidity: deficit sink required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, tickets: make(map[string]*ticket), logger: cfg.Logger}, nil
}

// exitThreshold is θ_liquidity_exit = θ_liquidity - ExitEdgeDelta, per spec
// §4.G's REPRICING trigger (c).
func (m *Manager) exitThreshold() float64 {
	return m.cfg.LiquidityMinAnnualized - m.cfg.ExitEdgeDelta
}

// Reconcile advances every tracked ticket by one step and opens new
// tickets for opportunities in liquidityOpps that don't have one yet. It
// is meant to be called once per scan frame, after the scanner has
// classified opportunities.
func (m *Manager) Reconcile(ctx context.Context, liquidityOpps []types.Opportunity, frame types.ScanFrame) {
	byKey := make(map[string]types.Opportunity, len(liquidityOpps))
	for _, opp := range liquidityOpps {
		byKey[ticketKey(opp.Pair.ID, opp.Combination)] = opp
	}

	m.mu.Lock()
	existing := make(map[string]*ticket, len(m.tickets))
	for k, t := range m.tickets {
		existing[k] = t
	}
	m.mu.Unlock()

	for key, t := range existing {
		opp, stillQualifies := byKey[key]
		var oppPtr *types.Opportunity
		if stillQualifies {
			oppPtr = &opp
			delete(byKey, key)
		}
		m.step(ctx, t, oppPtr, frame)
	}

	for key, opp := range byKey {
		t := &ticket{key: key, opportunity: opp, state: types.PosIdle, createdAt: time.Now()}
		m.step(ctx, t, &opp, frame)
		if t.state != types.PosDone && t.state != types.PosIdle {
			m.mu.Lock()
			m.tickets[key] = t
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	TicketsOpenGauge.Set(float64(len(m.tickets)))
	m.mu.Unlock()
}

// step advances one ticket through as many state transitions as are ready
// this frame: RESTING/PARTIALLY_FILLED and a cooling-down REPRICING wait
// for the next scan frame, but a transition into REPRICING, HEDGING, or
// DONE cascades immediately rather than idling for a frame it doesn't need.
func (m *Manager) step(ctx context.Context, t *ticket, opp *types.Opportunity, frame types.ScanFrame) {
	t.updatedAt = time.Now()

	for {
		prev := t.state

		switch t.state {
		case types.PosIdle:
			m.handleIdle(ctx, t, opp, frame)
		case types.PosResting, types.PosPartiallyFilled:
			m.handleResting(ctx, t, opp, frame)
		case types.PosRepricing:
			m.handleRepricing(ctx, t, opp, frame)
		case types.PosHedging:
			m.handleHedging(ctx, t)
		}

		if t.state == prev {
			break
		}
		if t.state == types.PosDone || t.state == types.PosIdle {
			break
		}
		if t.state == types.PosResting || t.state == types.PosPartiallyFilled {
			break
		}
	}

	if t.state == types.PosDone || t.state == types.PosIdle {
		m.mu.Lock()
		delete(m.tickets, t.key)
		m.mu.Unlock()
	}
}

func (m *Manager) client(v types.Venue) venue.Client {
	if v == types.VenueOpinion {
		return m.cfg.Opinion
	}
	return m.cfg.Polymarket
}

// chooseRestVenue picks the leg to rest a maker order on. As with the
// immediate strategy's first-leg choice, resting on the shallower-depth
// side means our resting order is more likely to be the best price a
// crosser sees rather than being buried under a larger book.
func chooseRestVenue(opp types.Opportunity) (restVenue types.Venue, restToken types.Token, restLegPrice float64, hedgeVenue types.Venue, hedgeToken types.Token) {
	if opp.OpinionAskDepth <= opp.PolymarketAskDepth {
		return types.VenueOpinion, opp.OpinionToken, opp.OpinionAskPrice, types.VenuePolymarket, opp.PolymarketToken
	}
	return types.VenuePolymarket, opp.PolymarketToken, opp.PolymarketAskPrice, types.VenueOpinion, opp.OpinionToken
}

func priceForVenue(opp types.Opportunity, v types.Venue) float64 {
	if v == types.VenueOpinion {
		return opp.OpinionAskPrice
	}
	return opp.PolymarketAskPrice
}

// handleIdle implements spec §4.G's IDLE → RESTING transition: resting
// price is max(best_bid + tick, scanned_price), a floor that keeps the
// resting order from posting below the price that made the opportunity
// look profitable even when the current best bid is unusually low.
func (m *Manager) handleIdle(ctx context.Context, t *ticket, opp *types.Opportunity, frame types.ScanFrame) {
	if opp == nil {
		t.state = types.PosIdle
		return
	}

	restVenue, restToken, scannedPrice, hedgeVenue, hedgeToken := chooseRestVenue(*opp)
	client := m.client(restVenue)

	qTarget := opp.SizeCap
	if m.cfg.TargetSize < qTarget {
		qTarget = m.cfg.TargetSize
	}

	tick := restToken.TickSize
	if tick <= 0 {
		tick = 0.01
	}

	restPrice := scannedPrice
	if book, ok := frame.Snapshot(restToken); ok {
		if bestBid, ok := book.BestBid(); ok && bestBid.Price+tick > restPrice {
			restPrice = bestBid.Price + tick
		}
	}
	restPrice = client.RoundToTick(restToken, restPrice)

	orderQty, _ := m.cfg.Fees.SizeForPlatform(restVenue, restPrice, qTarget)

	restTicket := types.OrderTicket{
		Venue:         restVenue,
		Token:         restToken,
		Side:          types.SideBuy,
		TargetFillQty: qTarget,
		OrderQty:      client.RoundToTick(restToken, orderQty),
		LimitPrice:    restPrice,
		TIF:           types.TIF_GTC,
		SubmittedAt:   time.Now(),
	}

	orderID, _, err := client.PlaceOrder(ctx, restTicket)
	if err != nil {
		m.logger.Error("liquidity-rest-place-failed",
			zap.String("pair-id", opp.Pair.ID), zap.String("venue", string(restVenue)), zap.Error(err))
		t.state = types.PosIdle
		return
	}

	t.opportunity = *opp
	t.restVenue = restVenue
	t.restToken = restToken
	t.restOrderID = orderID
	t.restPrice = restPrice
	t.restOrderQty = restTicket.OrderQty
	t.hedgeVenue = hedgeVenue
	t.hedgeToken = hedgeToken
	t.qTarget = qTarget
	t.state = types.PosResting
	t.lastRepriceAt = time.Now()

	StateTransitionsTotal.WithLabelValues(string(types.PosResting)).Inc()
	m.logger.Info("liquidity-ticket-resting",
		zap.String("pair-id", opp.Pair.ID), zap.String("rest-venue", string(restVenue)), zap.Float64("rest-price", restPrice))
}

// handleResting polls the resting order, accumulates fills, and decides
// whether to keep resting, move to hedging, or reprice per spec §4.G's
// RESTING transitions.
func (m *Manager) handleResting(ctx context.Context, t *ticket, opp *types.Opportunity, frame types.ScanFrame) {
	client := m.client(t.restVenue)

	polled, err := client.PollOrder(ctx, t.restOrderID)
	if err != nil {
		m.logger.Warn("liquidity-rest-poll-failed", zap.String("order-id", t.restOrderID), zap.Error(err))
		return
	}

	if polled.FilledQty > t.firstFilledAccum {
		t.firstFilledAccum = m.cfg.Fees.Received(t.restVenue, t.restPrice, polled.FilledQty)
	}

	remaining := t.restOrderQty - polled.FilledQty
	if polled.State == types.OrderFilled || remaining < m.cfg.MinSize {
		if remaining > 0 && remaining < m.cfg.MinSize {
			if _, err := client.CancelOrder(ctx, t.restOrderID); err != nil {
				m.logger.Warn("liquidity-rest-cancel-remainder-failed", zap.Error(err))
			}
		}
		m.logTrade(ctx, t, polled, t.restVenue, t.restToken)
		t.state = types.PosHedging
		StateTransitionsTotal.WithLabelValues(string(types.PosHedging)).Inc()
		return
	}

	if t.firstFilledAccum > 0 {
		t.state = types.PosPartiallyFilled
	} else {
		t.state = types.PosResting
	}

	if opp == nil {
		t.state = types.PosRepricing
		StateTransitionsTotal.WithLabelValues(string(types.PosRepricing)).Inc()
		return
	}

	if opp.AnnualizedReturn < m.exitThreshold() {
		t.state = types.PosRepricing
		StateTransitionsTotal.WithLabelValues(string(types.PosRepricing)).Inc()
		return
	}

	restBook, hasBook := frame.Snapshot(t.restToken)
	if hasBook {
		if bestBid, ok := restBook.BestBid(); ok && bestBid.Price > t.restPrice {
			t.state = types.PosRepricing // outbid
			StateTransitionsTotal.WithLabelValues(string(types.PosRepricing)).Inc()
			return
		}
		if bestAsk, ok := restBook.BestAsk(); ok && bestAsk.Price <= t.restPrice {
			t.state = types.PosRepricing // crossed
			StateTransitionsTotal.WithLabelValues(string(types.PosRepricing)).Inc()
			return
		}
	}

	t.opportunity = *opp
}

// handleRepricing implements spec §4.G's RESTING → REPRICING → RESTING/IDLE
// cycle: cancel first, then either resubmit at the current price (subject
// to the 5s-per-ticket reprice cooldown) or abandon if the edge that
// justified resting has genuinely collapsed.
func (m *Manager) handleRepricing(ctx context.Context, t *ticket, opp *types.Opportunity, frame types.ScanFrame) {
	client := m.client(t.restVenue)
	if _, err := client.CancelOrder(ctx, t.restOrderID); err != nil {
		m.logger.Warn("liquidity-reprice-cancel-failed", zap.String("order-id", t.restOrderID), zap.Error(err))
	}

	if opp == nil || opp.AnnualizedReturn < m.exitThreshold() {
		if t.firstFilledAccum > 0 {
			t.state = types.PosHedging
			StateTransitionsTotal.WithLabelValues(string(types.PosHedging)).Inc()
			return
		}
		t.state = types.PosIdle
		return
	}

	if time.Since(t.lastRepriceAt) < m.cfg.RepriceCooldown {
		// still cooling down; stay in REPRICING and try again next frame.
		return
	}

	RepricesTotal.Inc()
	remainder := t.qTarget - t.firstFilledAccum
	if remainder <= 0 {
		t.state = types.PosHedging
		StateTransitionsTotal.WithLabelValues(string(types.PosHedging)).Inc()
		return
	}

	repriceOpp := *opp
	repriceOpp.SizeCap = remainder
	m.handleIdle(ctx, t, &repriceOpp, frame)
}

// handleHedging implements spec §4.G's (PARTIALLY_FILLED|FILLED) → HEDGING
// → DONE transition: hedge exactly the deficit on the other venue with an
// IOC, never resting, per the invariant "hedge orders are never resting".
func (m *Manager) handleHedging(ctx context.Context, t *ticket) {
	deficit := t.Deficit()
	if deficit <= 0 {
		t.state = types.PosDone
		StateTransitionsTotal.WithLabelValues(string(types.PosDone)).Inc()
		return
	}

	hedgeClient := m.client(t.hedgeVenue)
	hedgePrice := priceForVenue(t.opportunity, t.hedgeVenue)

	orderQty, _ := m.cfg.Fees.SizeForPlatform(t.hedgeVenue, hedgePrice, deficit)
	hedgeTicket := types.OrderTicket{
		Venue:         t.hedgeVenue,
		Token:         t.hedgeToken,
		Side:          types.SideBuy,
		TargetFillQty: deficit,
		OrderQty:      hedgeClient.RoundToTick(t.hedgeToken, orderQty),
		LimitPrice:    hedgeClient.RoundToTick(t.hedgeToken, hedgePrice),
		TIF:           types.TIF_IOC,
		SubmittedAt:   time.Now(),
	}

	orderID, _, err := hedgeClient.PlaceOrder(ctx, hedgeTicket)
	if err != nil {
		m.emitDeficit(ctx, t, deficit, hedgePrice)
		t.state = types.PosDone
		StateTransitionsTotal.WithLabelValues(string(types.PosDone)).Inc()
		return
	}

	final, err := venue.PollUntilTerminal(ctx, hedgeClient, orderID, m.cfg.OrderPollInterval, m.cfg.HedgePollTimeout)
	if err != nil {
		m.emitDeficit(ctx, t, deficit, hedgePrice)
		t.state = types.PosDone
		StateTransitionsTotal.WithLabelValues(string(types.PosDone)).Inc()
		return
	}

	m.logTrade(ctx, t, final, t.hedgeVenue, t.hedgeToken)

	filled := m.cfg.Fees.Received(t.hedgeVenue, hedgePrice, final.FilledQty)
	t.hedgedAccum += filled

	if remaining := t.Deficit(); remaining > 0 {
		m.emitDeficit(ctx, t, remaining, hedgePrice)
	}

	t.state = types.PosDone
	StateTransitionsTotal.WithLabelValues(string(types.PosDone)).Inc()
}

func (m *Manager) emitDeficit(ctx context.Context, t *ticket, deficit, bestAsk float64) {
	DeficitsEmittedTotal.Inc()
	err := m.cfg.Deficits.Submit(ctx, types.DeficitEvent{
		HedgeVenue:    t.hedgeVenue,
		HedgeToken:    t.hedgeToken,
		DeficitQty:    deficit,
		BestAskAtEmit: bestAsk,
		RemainingEdge: t.opportunity.RawEdge - 0.005,
		EmittedAt:     time.Now(),
	})
	if err != nil {
		m.logger.Error("liquidity-deficit-submit-failed", zap.String("pair-id", t.opportunity.Pair.ID), zap.Error(err))
	}
}

// Shutdown cancels every resting order and hedges whatever accumulated
// fills exist, per spec §4.G's "Any → CANCELING: Supervisor shutdown or
// pair de-listed; cancel, drain any pending fills, hedge what exists."
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	tickets := make([]*ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		tickets = append(tickets, t)
	}
	m.mu.Unlock()

	for _, t := range tickets {
		t.state = types.PosCanceling
		client := m.client(t.restVenue)
		if _, err := client.CancelOrder(ctx, t.restOrderID); err != nil {
			m.logger.Warn("liquidity-shutdown-cancel-failed", zap.String("order-id", t.restOrderID), zap.Error(err))
		}
		if polled, err := client.PollOrder(ctx, t.restOrderID); err == nil && polled.FilledQty > t.firstFilledAccum {
			t.firstFilledAccum = m.cfg.Fees.Received(t.restVenue, t.restPrice, polled.FilledQty)
		}
		if t.Deficit() > 0 {
			m.handleHedging(ctx, t)
		}
		m.mu.Lock()
		delete(m.tickets, t.key)
		m.mu.Unlock()
	}
}

// OpenTickets returns the number of tickets currently tracked, for
// Supervisor accounting of open positions.
func (m *Manager) OpenTickets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// logTrade persists a filled leg and, for Polymarket fills, feeds the
// balance breaker's rolling trade-size window so its thresholds track how
// this venue is actually being traded.
func (m *Manager) logTrade(ctx context.Context, t *ticket, filled types.OrderTicket, v types.Venue, token types.Token) {
	if filled.FilledQty <= 0 {
		return
	}

	if v == types.VenuePolymarket && m.cfg.PolymarketBreaker != nil {
		m.cfg.PolymarketBreaker.RecordTrade(filled.AvgFillPrice * filled.FilledQty)
	}

	if m.cfg.TradeLog == nil {
		return
	}

	fee := 0.0
	if v == types.VenueOpinion {
		fee = filled.LimitPrice * filled.FilledQty * m.cfg.Fees.OpinionFeeRate(filled.LimitPrice)
	}
	entry := types.TradeLogEntry{
		Timestamp:     time.Now(),
		Venue:         v,
		TokenID:       token.TokenID,
		Outcome:       token.Outcome,
		Side:          types.SideBuy,
		OrderQty:      filled.OrderQty,
		LimitPrice:    filled.LimitPrice,
		FilledQty:     filled.FilledQty,
		AvgFillPrice:  filled.AvgFillPrice,
		Fee:           fee,
		OpportunityID: t.opportunity.ID,
	}
	if err := m.cfg.TradeLog.WriteTrade(ctx, entry); err != nil {
		m.logger.Warn("liquidity-trade-log-write-failed", zap.Error(err))
	}
}

package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// Consumer is the dedicated deficit-event sink named in spec §4.H. Both
// the immediate and liquidity strategies hold a reference to it through
// the DeficitSink interface each package defines locally; Consumer
// satisfies both by structural typing.
type Consumer struct {
	cfg Config

	events chan types.DeficitEvent

	wg sync.WaitGroup

	residualShares atomic.Int64 // stored *1000 for fixed-point accumulation across goroutines

	logger *zap.Logger
}

// New constructs a Consumer.
func New(cfg Config) (*Consumer, error) {
	cfg = cfg.withDefaults()
	if cfg.Opinion == nil || cfg.Polymarket == nil {
		return nil, fmt.Errorf("reconciliation: both venue clients required")
	}
	if cfg.Fees == nil {
		return nil, fmt.Errorf("reconciliation: fee model required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Consumer{
		cfg:    cfg,
		events: make(chan types.DeficitEvent, cfg.QueueSize),
		logger: cfg.Logger,
	}, nil
}

// Submit enqueues a deficit event, blocking only if the queue is full and
// ctx has not been canceled. This is the DeficitSink interface expected by
// internal/strategy/immediate and internal/strategy/liquidity.
func (c *Consumer) Submit(ctx context.Context, event types.DeficitEvent) error {
	select {
	case c.events <- event:
		QueueDepth.Set(float64(len(c.events)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts cfg.Workers worker goroutines draining the deficit queue and
// blocks until ctx is canceled and every in-flight attempt has finished.
func (c *Consumer) Run(ctx context.Context) {
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	<-ctx.Done()
	c.wg.Wait()
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.events:
			QueueDepth.Set(float64(len(c.events)))
			c.reconcile(ctx, event)
		}
	}
}

func (c *Consumer) client(v types.Venue) venue.Client {
	if v == types.VenueOpinion {
		return c.cfg.Opinion
	}
	return c.cfg.Polymarket
}

// reconcile implements spec §4.H's reconciliation loop: place IOC hedges
// at price = best_ask + k·tick for k = 0, 1, 2, ..., stopping when the
// deficit is filled, max_hedge_attempts is reached, or the cumulative
// slippage from the original best ask exceeds event.RemainingEdge (the
// stop-loss threshold ΔP > max_slippage_edge from spec §4.F step 8).
func (c *Consumer) reconcile(ctx context.Context, event types.DeficitEvent) {
	client := c.client(event.HedgeVenue)
	tick := event.HedgeToken.TickSize
	if tick <= 0 {
		tick = 0.01
	}

	remaining := event.DeficitQty

	for attempt := 0; attempt < c.cfg.MaxHedgeAttempts; attempt++ {
		slippage := float64(attempt) * tick
		if slippage > event.RemainingEdge {
			c.surfaceUnresolved(event, remaining, "stop_loss_threshold_exceeded")
			return
		}

		price := client.RoundToTick(event.HedgeToken, event.BestAskAtEmit+slippage)
		orderQty, _ := c.cfg.Fees.SizeForPlatform(event.HedgeVenue, price, remaining)

		ticket := types.OrderTicket{
			Venue:         event.HedgeVenue,
			Token:         event.HedgeToken,
			Side:          types.SideBuy,
			TargetFillQty: remaining,
			OrderQty:      client.RoundToTick(event.HedgeToken, orderQty),
			LimitPrice:    price,
			TIF:           types.TIF_IOC,
			SubmittedAt:   time.Now(),
		}

		HedgeAttemptsTotal.Inc()
		orderID, _, err := client.PlaceOrder(ctx, ticket)
		if err != nil {
			c.logger.Warn("reconciliation-place-failed",
				zap.String("venue", string(event.HedgeVenue)), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		final, err := venue.PollUntilTerminal(ctx, client, orderID, c.cfg.PollInterval, c.cfg.PollTimeout)
		if err != nil {
			c.logger.Warn("reconciliation-poll-failed",
				zap.String("order-id", orderID), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		c.logTrade(ctx, event, final, price)

		received := c.cfg.Fees.Received(event.HedgeVenue, price, final.FilledQty)
		remaining -= received
		if remaining <= c.cfg.FillTolerance {
			DeficitsResolvedTotal.Inc()
			c.logger.Info("reconciliation-deficit-resolved",
				zap.String("venue", string(event.HedgeVenue)), zap.Int("attempts", attempt+1))
			return
		}
	}

	c.surfaceUnresolved(event, remaining, "max_hedge_attempts_exhausted")
}

// surfaceUnresolved logs residual exposure and accumulates it in a gauge
// for the operator; per spec §7, unresolved deficits are "surfaced to the
// operator but not retried beyond max_hedge_attempts."
func (c *Consumer) surfaceUnresolved(event types.DeficitEvent, remaining float64, reason string) {
	DeficitsUnresolvedTotal.Inc()
	newTotal := c.residualShares.Add(int64(remaining * 1000))
	ResidualExposureShares.Set(float64(newTotal) / 1000)
	c.logger.Error("reconciliation-deficit-unresolved",
		zap.String("venue", string(event.HedgeVenue)),
		zap.String("token", event.HedgeToken.TokenID),
		zap.Float64("residual-shares", remaining),
		zap.String("reason", reason))
}

func (c *Consumer) logTrade(ctx context.Context, event types.DeficitEvent, ticket types.OrderTicket, price float64) {
	if c.cfg.TradeLog == nil {
		return
	}
	fee := 0.0
	if event.HedgeVenue == types.VenueOpinion {
		fee = price * ticket.FilledQty * c.cfg.Fees.OpinionFeeRate(price)
	}
	entry := types.TradeLogEntry{
		Timestamp:    time.Now(),
		Venue:        event.HedgeVenue,
		TokenID:      event.HedgeToken.TokenID,
		Outcome:      event.HedgeToken.Outcome,
		Side:         types.SideBuy,
		OrderQty:     ticket.OrderQty,
		LimitPrice:   ticket.LimitPrice,
		FilledQty:    ticket.FilledQty,
		AvgFillPrice: ticket.AvgFillPrice,
		Fee:          fee,
	}
	if event.Position != nil {
		entry.OpportunityID = event.Position.Opportunity.ID
	}
	if err := c.cfg.TradeLog.WriteTrade(ctx, entry); err != nil {
		c.logger.Warn("reconciliation-trade-log-write-failed", zap.Error(err))
	}
}

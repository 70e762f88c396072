package venue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

// PaperClient wraps a real Client and short-circuits every order-mutating
// call with an immediate simulated fill at the requested limit price,
// leaving every read path (ListMarkets, GetBook, GetBooksBatch,
// GetBalances) delegated to the wrapped adapter. This is spec's *dry run*
// operator mode (§6): scan and log, never order.
type PaperClient struct {
	inner  Client
	logger *zap.Logger

	mu     sync.Mutex
	orders map[string]types.OrderTicket
}

// NewPaperClient wraps inner so every PlaceOrder/CancelOrder/PollOrder
// call is served from an in-memory simulated book instead of the venue.
func NewPaperClient(inner Client, logger *zap.Logger) *PaperClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperClient{inner: inner, logger: logger, orders: make(map[string]types.OrderTicket)}
}

// Name implements Client.
func (p *PaperClient) Name() types.Venue { return p.inner.Name() }

// ListMarkets implements Client, delegating to the wrapped adapter.
func (p *PaperClient) ListMarkets(ctx context.Context, statusFilter, cursor string) (MarketPage, error) {
	return p.inner.ListMarkets(ctx, statusFilter, cursor)
}

// GetBook implements Client, delegating to the wrapped adapter.
func (p *PaperClient) GetBook(ctx context.Context, token types.Token) (types.BookSnapshot, error) {
	return p.inner.GetBook(ctx, token)
}

// GetBooksBatch implements Client, delegating to the wrapped adapter.
func (p *PaperClient) GetBooksBatch(ctx context.Context, tokens []types.Token) (map[string]types.BookSnapshot, error) {
	return p.inner.GetBooksBatch(ctx, tokens)
}

// PlaceOrder simulates an immediate full fill at the ticket's limit price
// instead of submitting to the venue.
func (p *PaperClient) PlaceOrder(ctx context.Context, ticket types.OrderTicket) (string, types.OrderState, error) {
	now := time.Now()
	ticket.OrderID = uuid.NewString()
	ticket.State = types.OrderFilled
	ticket.FilledQty = ticket.OrderQty
	ticket.AvgFillPrice = ticket.LimitPrice
	ticket.SubmittedAt = now
	ticket.UpdatedAt = now

	p.mu.Lock()
	p.orders[ticket.OrderID] = ticket
	p.mu.Unlock()

	p.logger.Info("paper-order-filled",
		zap.String("order_id", ticket.OrderID),
		zap.String("venue", string(ticket.Venue)),
		zap.Float64("qty", ticket.OrderQty),
		zap.Float64("price", ticket.LimitPrice))

	return ticket.OrderID, types.OrderFilled, nil
}

// CancelOrder reports ALREADY_TERMINAL: every simulated order fills
// synchronously in PlaceOrder, so there is never anything left resting to
// cancel.
func (p *PaperClient) CancelOrder(ctx context.Context, orderID string) (AckResult, error) {
	return AckAlreadyTerminal, nil
}

// PollOrder returns the simulated ticket recorded at PlaceOrder time.
func (p *PaperClient) PollOrder(ctx context.Context, orderID string) (types.OrderTicket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orders[orderID], nil
}

// GetBalances implements Client, delegating to the wrapped adapter so the
// balance-pause gate still reflects real venue funding even in dry run.
func (p *PaperClient) GetBalances(ctx context.Context) ([]types.Balance, error) {
	return p.inner.GetBalances(ctx)
}

// RoundToTick implements Client, delegating to the wrapped adapter.
func (p *PaperClient) RoundToTick(token types.Token, price float64) float64 {
	return p.inner.RoundToTick(token, price)
}

// Degraded implements Client, delegating to the wrapped adapter.
func (p *PaperClient) Degraded() bool { return p.inner.Degraded() }

package liquidity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

type scriptedClient struct {
	name types.Venue

	mu        sync.Mutex
	placed    []types.OrderTicket
	canceled  []string
	pollState types.OrderTicket
	book      types.BookSnapshot
	orderSeq  int
}

func (c *scriptedClient) Name() types.Venue { return c.name }
func (c *scriptedClient) ListMarkets(ctx context.Context, statusFilter, cursor string) (venue.MarketPage, error) {
	return venue.MarketPage{}, nil
}
func (c *scriptedClient) GetBook(ctx context.Context, token types.Token) (types.BookSnapshot, error) {
	return c.book, nil
}
func (c *scriptedClient) GetBooksBatch(ctx context.Context, tokens []types.Token) (map[string]types.BookSnapshot, error) {
	return nil, nil
}
func (c *scriptedClient) PlaceOrder(ctx context.Context, ticket types.OrderTicket) (string, types.OrderState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, ticket)
	c.orderSeq++
	return "ord-" + string(rune('a'+c.orderSeq)), types.OrderOpen, nil
}
func (c *scriptedClient) CancelOrder(ctx context.Context, orderID string) (venue.AckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = append(c.canceled, orderID)
	return venue.AckAccepted, nil
}
func (c *scriptedClient) PollOrder(ctx context.Context, orderID string) (types.OrderTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollState, nil
}
func (c *scriptedClient) GetBalances(ctx context.Context) ([]types.Balance, error) { return nil, nil }
func (c *scriptedClient) RoundToTick(token types.Token, price float64) float64     { return price }
func (c *scriptedClient) Degraded() bool                                          { return false }

type recordingSink struct {
	mu     sync.Mutex
	events []types.DeficitEvent
}

func (r *recordingSink) Submit(ctx context.Context, event types.DeficitEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func testLiquidityOpportunity() types.Opportunity {
	return types.Opportunity{
		Pair:               types.MarketPair{ID: "pair-9"},
		Combination:        types.CombinationOpinionYesPolyNo,
		OpinionToken:       types.Token{Venue: types.VenueOpinion, TokenID: "op-yes", TickSize: 0.01},
		PolymarketToken:    types.Token{Venue: types.VenuePolymarket, TokenID: "poly-no", TickSize: 0.01},
		OpinionAskPrice:    0.50,
		OpinionAskDepth:    300,
		PolymarketAskPrice: 0.42,
		PolymarketAskDepth: 900,
		RawEdge:            0.08,
		AnnualizedReturn:   0.30,
		SizeCap:            300,
		Strategy:           types.StrategyLiquidity,
	}
}

func newTestManager(t *testing.T, opinion, poly venue.Client, sink DeficitSink) *Manager {
	t.Helper()
	feeModel := fees.New(fees.DefaultConfig())
	m, err := New(Config{
		Opinion:                opinion,
		Polymarket:             poly,
		Fees:                   feeModel,
		Deficits:               sink,
		LiquidityMinAnnualized: 0.20,
		Logger:                 zap.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func TestReconcile_OpensNewRestingTicket(t *testing.T) {
	opinion := &scriptedClient{name: types.VenueOpinion}
	poly := &scriptedClient{name: types.VenuePolymarket}
	sink := &recordingSink{}
	m := newTestManager(t, opinion, poly, sink)

	opp := testLiquidityOpportunity()
	m.Reconcile(context.Background(), []types.Opportunity{opp}, types.ScanFrame{StampedAt: time.Now()})

	assert.Equal(t, 1, m.OpenTickets())
	assert.Len(t, opinion.placed, 1)
	assert.Equal(t, types.TIF_GTC, opinion.placed[0].TIF)
}

func TestReconcile_FullFillTransitionsToHedgeAndDone(t *testing.T) {
	opinion := &scriptedClient{name: types.VenueOpinion}
	poly := &scriptedClient{name: types.VenuePolymarket}
	sink := &recordingSink{}
	m := newTestManager(t, opinion, poly, sink)

	opp := testLiquidityOpportunity()
	frame := types.ScanFrame{StampedAt: time.Now()}
	m.Reconcile(context.Background(), []types.Opportunity{opp}, frame)
	require.Equal(t, 1, m.OpenTickets())

	// Simulate the resting order fully filling.
	opinion.mu.Lock()
	opinion.pollState = types.OrderTicket{State: types.OrderFilled, FilledQty: opinion.placed[0].OrderQty}
	opinion.mu.Unlock()

	poly.pollState = types.OrderTicket{State: types.OrderFilled, FilledQty: 300}

	m.Reconcile(context.Background(), []types.Opportunity{opp}, frame)

	assert.Equal(t, 0, m.OpenTickets())
	assert.Len(t, poly.placed, 1) // hedge leg placed
	assert.Equal(t, types.TIF_IOC, poly.placed[0].TIF)
}

func TestReconcile_HedgeUnderfillEmitsDeficit(t *testing.T) {
	opinion := &scriptedClient{name: types.VenueOpinion}
	poly := &scriptedClient{name: types.VenuePolymarket}
	sink := &recordingSink{}
	m := newTestManager(t, opinion, poly, sink)

	opp := testLiquidityOpportunity()
	frame := types.ScanFrame{StampedAt: time.Now()}
	m.Reconcile(context.Background(), []types.Opportunity{opp}, frame)
	require.Equal(t, 1, m.OpenTickets())

	opinion.mu.Lock()
	opinion.pollState = types.OrderTicket{State: types.OrderFilled, FilledQty: opinion.placed[0].OrderQty}
	opinion.mu.Unlock()

	poly.pollState = types.OrderTicket{State: types.OrderCanceled, FilledQty: 100} // IOC underfilled, canceled the rest

	m.Reconcile(context.Background(), []types.Opportunity{opp}, frame)

	require.Len(t, sink.events, 1)
	assert.Greater(t, sink.events[0].DeficitQty, 0.0)
}

func TestReconcile_EdgeCollapseCancelsAndAbandons(t *testing.T) {
	opinion := &scriptedClient{name: types.VenueOpinion}
	poly := &scriptedClient{name: types.VenuePolymarket}
	sink := &recordingSink{}
	m := newTestManager(t, opinion, poly, sink)

	opp := testLiquidityOpportunity()
	frame := types.ScanFrame{StampedAt: time.Now()}
	m.Reconcile(context.Background(), []types.Opportunity{opp}, frame)
	require.Equal(t, 1, m.OpenTickets())

	opinion.pollState = types.OrderTicket{State: types.OrderOpen, FilledQty: 0}

	// Opportunity no longer present in this frame's liquidity set — edge collapsed.
	m.Reconcile(context.Background(), []types.Opportunity{}, frame)

	assert.Equal(t, 0, m.OpenTickets())
	assert.NotEmpty(t, opinion.canceled)
}

func TestShutdown_CancelsAllOpenTickets(t *testing.T) {
	opinion := &scriptedClient{name: types.VenueOpinion}
	poly := &scriptedClient{name: types.VenuePolymarket}
	sink := &recordingSink{}
	m := newTestManager(t, opinion, poly, sink)

	opp := testLiquidityOpportunity()
	frame := types.ScanFrame{StampedAt: time.Now()}
	m.Reconcile(context.Background(), []types.Opportunity{opp}, frame)
	require.Equal(t, 1, m.OpenTickets())

	opinion.pollState = types.OrderTicket{State: types.OrderOpen, FilledQty: 0}

	m.Shutdown(context.Background())
	assert.Equal(t, 0, m.OpenTickets())
	assert.NotEmpty(t, opinion.canceled)
}

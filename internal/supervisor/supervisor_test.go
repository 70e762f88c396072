package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/internal/matcher"
	"github.com/mselser95/arbengine/internal/reconciliation"
	"github.com/mselser95/arbengine/internal/scanner"
	"github.com/mselser95/arbengine/internal/strategy/immediate"
	"github.com/mselser95/arbengine/internal/strategy/liquidity"
	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

type fakeVenueClient struct {
	name    types.Venue
	listErr error
}

func (f *fakeVenueClient) Name() types.Venue { return f.name }
func (f *fakeVenueClient) ListMarkets(ctx context.Context, statusFilter, cursor string) (venue.MarketPage, error) {
	if f.listErr != nil {
		return venue.MarketPage{}, f.listErr
	}
	return venue.MarketPage{}, nil
}
func (f *fakeVenueClient) GetBook(ctx context.Context, token types.Token) (types.BookSnapshot, error) {
	return types.BookSnapshot{}, nil
}
func (f *fakeVenueClient) GetBooksBatch(ctx context.Context, tokens []types.Token) (map[string]types.BookSnapshot, error) {
	return nil, nil
}
func (f *fakeVenueClient) PlaceOrder(ctx context.Context, ticket types.OrderTicket) (string, types.OrderState, error) {
	return "order-1", types.OrderFilled, nil
}
func (f *fakeVenueClient) CancelOrder(ctx context.Context, orderID string) (venue.AckResult, error) {
	return venue.AckAccepted, nil
}
func (f *fakeVenueClient) PollOrder(ctx context.Context, orderID string) (types.OrderTicket, error) {
	return types.OrderTicket{OrderID: orderID, State: types.OrderFilled, FilledQty: 100, AvgFillPrice: 0.5}, nil
}
func (f *fakeVenueClient) GetBalances(ctx context.Context) ([]types.Balance, error) { return nil, nil }
func (f *fakeVenueClient) RoundToTick(token types.Token, price float64) float64     { return price }
func (f *fakeVenueClient) Degraded() bool                                          { return false }

type fakeBookFetcher struct {
	calls int
}

func (f *fakeBookFetcher) FetchFrame(ctx context.Context, tokens []types.Token) types.ScanFrame {
	f.calls++
	return types.ScanFrame{Snapshots: map[string]types.BookSnapshot{}, StampedAt: time.Now()}
}

func newTestSupervisor(t *testing.T, bf BookFetcher, scanInterval, downGrace time.Duration) (*Supervisor, *matcher.Matcher) {
	t.Helper()
	logger := zap.NewNop()

	opinion := &fakeVenueClient{name: types.VenueOpinion}
	poly := &fakeVenueClient{name: types.VenuePolymarket}

	m, err := matcher.New(matcher.Config{
		OpinionClient:             opinion,
		PolymarketClient:          poly,
		Logger:                    logger,
		BothVenuesDownGracePeriod: downGrace,
	})
	require.NoError(t, err)

	feeModel := fees.New(fees.DefaultConfig())
	sc, err := scanner.New(scanner.DefaultConfig(feeModel), logger)
	require.NoError(t, err)

	recon, err := reconciliation.New(reconciliation.Config{
		Opinion:    opinion,
		Polymarket: poly,
		Fees:       feeModel,
		Logger:     logger,
	})
	require.NoError(t, err)

	exec, err := immediate.New(immediate.Config{
		Opinion:    opinion,
		Polymarket: poly,
		Fees:       feeModel,
		Deficits:   recon,
		Logger:     logger,
	})
	require.NoError(t, err)

	liq, err := liquidity.New(liquidity.Config{
		Opinion:    opinion,
		Polymarket: poly,
		Fees:       feeModel,
		Deficits:   recon,
		Logger:     logger,
	})
	require.NoError(t, err)

	sup, err := New(Config{
		Matcher:      m,
		BookFetcher:  bf,
		Scanner:      sc,
		Immediate:    exec,
		Liquidity:    liq,
		Reconciler:   recon,
		ScanInterval: scanInterval,
		Logger:       logger,
	})
	require.NoError(t, err)
	return sup, m
}

func TestScanOnce_NoPairsSkipsFetch(t *testing.T) {
	bf := &fakeBookFetcher{}
	sup, _ := newTestSupervisor(t, bf, time.Second, time.Hour)

	sup.scanOnce(context.Background())

	assert.Equal(t, 0, bf.calls)
	assert.False(t, sup.Halted())
}

func TestScanOnce_BothVenuesDownHalts(t *testing.T) {
	bf := &fakeBookFetcher{}
	sup, _ := newTestSupervisor(t, bf, time.Second, time.Nanosecond)

	time.Sleep(time.Millisecond) // exceed the nanosecond grace period

	sup.scanOnce(context.Background())

	assert.True(t, sup.Halted())
	assert.Equal(t, 0, bf.calls)
}

func testImmediateOpportunity(pairID string) types.Opportunity {
	return types.Opportunity{
		ID:                 pairID,
		Pair:               types.MarketPair{ID: pairID},
		Combination:        types.CombinationOpinionYesPolyNo,
		OpinionToken:       types.Token{Venue: types.VenueOpinion, TokenID: "op-yes", TickSize: 0.01},
		PolymarketToken:    types.Token{Venue: types.VenuePolymarket, TokenID: "poly-no", TickSize: 0.01},
		OpinionAskPrice:    0.55,
		OpinionAskDepth:    500,
		PolymarketAskPrice: 0.40,
		PolymarketAskDepth: 700,
		RawEdge:            0.05,
		EffectiveEdge:      0.04,
		SizeCap:            100,
		Strategy:           types.StrategyImmediate,
	}
}

func TestDispatchImmediate_RespectsConcurrencyCap(t *testing.T) {
	logger := zap.NewNop()
	opinion := &fakeVenueClient{name: types.VenueOpinion}
	poly := &fakeVenueClient{name: types.VenuePolymarket}
	feeModel := fees.New(fees.DefaultConfig())

	recon, err := reconciliation.New(reconciliation.Config{Opinion: opinion, Polymarket: poly, Fees: feeModel, Logger: logger})
	require.NoError(t, err)

	exec, err := immediate.New(immediate.Config{
		Opinion:       opinion,
		Polymarket:    poly,
		Fees:          feeModel,
		Deficits:      recon,
		MaxConcurrent: 1,
		Logger:        logger,
	})
	require.NoError(t, err)

	liq, err := liquidity.New(liquidity.Config{Opinion: opinion, Polymarket: poly, Fees: feeModel, Deficits: recon, Logger: logger})
	require.NoError(t, err)
	m, err := matcher.New(matcher.Config{OpinionClient: opinion, PolymarketClient: poly, Logger: logger})
	require.NoError(t, err)
	sc, err := scanner.New(scanner.DefaultConfig(feeModel), logger)
	require.NoError(t, err)

	sup, err := New(Config{
		Matcher:     m,
		BookFetcher: &fakeBookFetcher{},
		Scanner:     sc,
		Immediate:   exec,
		Liquidity:   liq,
		Reconciler:  recon,
		Logger:      logger,
	})
	require.NoError(t, err)

	opps := []types.Opportunity{testImmediateOpportunity("pair-1"), testImmediateOpportunity("pair-2")}
	sup.dispatchImmediate(context.Background(), opps)
	sup.wg.Wait()

	// MaxConcurrent was 1; both opportunities were still offered to
	// TryAcquire, so the slot is free again once every spawned execution
	// finishes.
	assert.True(t, exec.TryAcquire())
}

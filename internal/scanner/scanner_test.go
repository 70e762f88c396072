package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/pkg/types"
)

func testPair(resolution time.Time) types.MarketPair {
	return types.MarketPair{
		ID:             "pair-1",
		OpinionYes:     types.Token{Venue: types.VenueOpinion, TokenID: "op-yes", TickSize: 0.01},
		OpinionNo:      types.Token{Venue: types.VenueOpinion, TokenID: "op-no", TickSize: 0.01},
		PolymarketYes:  types.Token{Venue: types.VenuePolymarket, TokenID: "poly-yes", TickSize: 0.01},
		PolymarketNo:   types.Token{Venue: types.VenuePolymarket, TokenID: "poly-no", TickSize: 0.01},
		ResolutionDate: resolution,
	}
}

func book(token types.Token, bidPrice, bidSize, askPrice, askSize float64, stamp time.Time) types.BookSnapshot {
	return types.BookSnapshot{
		Token:     token,
		Venue:     token.Venue,
		Bids:      []types.BookLevel{{Price: bidPrice, Size: bidSize}},
		Asks:      []types.BookLevel{{Price: askPrice, Size: askSize}},
		Timestamp: stamp,
	}
}

func newTestScanner(t *testing.T) *Scanner {
	t.Helper()
	feeModel := fees.New(fees.DefaultConfig())
	s, err := New(DefaultConfig(feeModel), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestScan_EmitsImmediateOpportunity(t *testing.T) {
	s := newTestScanner(t)
	now := time.Now()
	pair := testPair(now.Add(48 * time.Hour))

	frame := types.ScanFrame{
		StampedAt: now,
		Snapshots: map[string]types.BookSnapshot{
			pair.OpinionYes.Key():    book(pair.OpinionYes, 0.53, 500, 0.55, 500, now),
			pair.PolymarketNo.Key():  book(pair.PolymarketNo, 0.38, 500, 0.40, 500, now),
			pair.OpinionNo.Key():     book(pair.OpinionNo, 0.0, 0, 0.0, 0, now),
			pair.PolymarketYes.Key(): book(pair.PolymarketYes, 0.0, 0, 0.0, 0, now),
		},
	}

	opps := s.Scan([]types.MarketPair{pair}, frame)
	require.Len(t, opps, 2)

	var immediate *types.Opportunity
	for i := range opps {
		if opps[i].Combination == types.CombinationOpinionYesPolyNo {
			immediate = &opps[i]
		}
	}
	require.NotNil(t, immediate)
	assert.Equal(t, types.StrategyImmediate, immediate.Strategy)
	assert.InDelta(t, 0.05, immediate.RawEdge, 1e-9)
	assert.Greater(t, immediate.EffectiveEdge, 0.0)
	assert.Equal(t, 500.0, immediate.SizeCap)
}

func TestScan_SkipsZeroDepth(t *testing.T) {
	s := newTestScanner(t)
	now := time.Now()
	pair := testPair(now.Add(48 * time.Hour))

	frame := types.ScanFrame{
		StampedAt: now,
		Snapshots: map[string]types.BookSnapshot{
			pair.OpinionYes.Key():   book(pair.OpinionYes, 0.53, 500, 0.55, 0, now),
			pair.PolymarketNo.Key(): book(pair.PolymarketNo, 0.38, 500, 0.40, 500, now),
		},
	}

	opps := s.Scan([]types.MarketPair{pair}, frame)
	require.Len(t, opps, 1) // only the combination whose both books exist in frame
	assert.Equal(t, types.StrategyDiscard, opps[0].Strategy)
	assert.Equal(t, "zero_depth", opps[0].SkipReason)
}

func TestScan_MissingBookYieldsNoRecord(t *testing.T) {
	s := newTestScanner(t)
	now := time.Now()
	pair := testPair(now.Add(48 * time.Hour))

	frame := types.ScanFrame{StampedAt: now, Snapshots: map[string]types.BookSnapshot{}}

	opps := s.Scan([]types.MarketPair{pair}, frame)
	assert.Empty(t, opps)
}

func TestScan_FlagsSuspiciousEdge(t *testing.T) {
	s := newTestScanner(t)
	now := time.Now()
	pair := testPair(now.Add(48 * time.Hour))

	frame := types.ScanFrame{
		StampedAt: now,
		Snapshots: map[string]types.BookSnapshot{
			pair.OpinionYes.Key():   book(pair.OpinionYes, 0.01, 500, 0.02, 500, now),
			pair.PolymarketNo.Key(): book(pair.PolymarketNo, 0.03, 500, 0.05, 500, now),
		},
	}

	opps := s.Scan([]types.MarketPair{pair}, frame)
	require.Len(t, opps, 1)
	assert.True(t, opps[0].Suspicious)
	assert.Equal(t, types.StrategyDiscard, opps[0].Strategy)
	assert.Equal(t, "suspicious_edge", opps[0].SkipReason)
}

func TestScan_InactivePairYieldsNothing(t *testing.T) {
	s := newTestScanner(t)
	now := time.Now()
	pair := testPair(now.Add(48 * time.Hour))
	pair.OpinionClosed = true

	frame := types.ScanFrame{
		StampedAt: now,
		Snapshots: map[string]types.BookSnapshot{
			pair.OpinionYes.Key():   book(pair.OpinionYes, 0.53, 500, 0.55, 500, now),
			pair.PolymarketNo.Key(): book(pair.PolymarketNo, 0.38, 500, 0.40, 500, now),
		},
	}

	opps := s.Scan([]types.MarketPair{pair}, frame)
	assert.Empty(t, opps)
}

func TestRankImmediate_SortsByAnnualizedReturnDescending(t *testing.T) {
	opps := []types.Opportunity{
		{Strategy: types.StrategyImmediate, AnnualizedReturn: 0.10},
		{Strategy: types.StrategyImmediate, AnnualizedReturn: 0.30},
		{Strategy: types.StrategyLiquidity, AnnualizedReturn: 0.90},
	}
	ranked := RankImmediate(opps)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0.30, ranked[0].AnnualizedReturn)
	assert.Equal(t, 0.10, ranked[1].AnnualizedReturn)
}

func TestRankLiquidity_SortsByRawEdgeDescending(t *testing.T) {
	opps := []types.Opportunity{
		{Strategy: types.StrategyLiquidity, RawEdge: 0.02},
		{Strategy: types.StrategyLiquidity, RawEdge: 0.08},
	}
	ranked := RankLiquidity(opps)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0.08, ranked[0].RawEdge)
}

func TestLiquidityScore_BetterBookScoresHigher(t *testing.T) {
	now := time.Now()
	tightBook := types.BookSnapshot{
		Bids: []types.BookLevel{{Price: 0.49, Size: 1000}},
		Asks: []types.BookLevel{{Price: 0.50, Size: 1000}},
		Timestamp: now,
	}
	wideBook := types.BookSnapshot{
		Bids: []types.BookLevel{{Price: 0.30, Size: 5}},
		Asks: []types.BookLevel{{Price: 0.70, Size: 5}},
		Timestamp: now,
	}

	tightScore := LiquidityScore(tightBook, tightBook)
	wideScore := LiquidityScore(wideBook, wideBook)
	assert.Greater(t, tightScore, wideScore)
}

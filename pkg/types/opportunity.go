package types

import "time"

// Strategy classifies an Opportunity by which execution path should handle
// it, per the thresholds in spec's config table (immediate_min_edge_pct /
// liquidity_min_annualized_pct).
type Strategy string

const (
	StrategyImmediate Strategy = "immediate"
	StrategyLiquidity Strategy = "liquidity"
	StrategyDiscard   Strategy = "discard"
)

// Opportunity is an apparent cross-venue arbitrage on one combination of one
// matched pair, built from a single ScanFrame.
type Opportunity struct {
	ID              string
	Pair            MarketPair
	Combination     Combination
	OpinionToken    Token
	PolymarketToken Token

	OpinionAskPrice    float64
	OpinionAskDepth    float64
	PolymarketAskPrice float64
	PolymarketAskDepth float64

	RawEdge          float64 // 1 - (p_opinion + p_polymarket)
	EffectiveEdge    float64 // raw edge with opinion's ask replaced by its effective per-share cost
	SizeCap          float64 // min(depth_opinion, depth_polymarket, max_per_trade, max_notional/(p1+p2))
	AnnualizedReturn float64
	DaysToResolution float64
	LiquidityScore   float64

	Strategy   Strategy
	Suspicious bool
	SkipReason string

	DetectedAt time.Time
	FrameStamp time.Time
}

// PriceSum returns the sum of the two complementary ask prices.
func (o Opportunity) PriceSum() float64 {
	return o.OpinionAskPrice + o.PolymarketAskPrice
}

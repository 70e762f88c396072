package scanner

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

var allCombinations = []types.Combination{
	types.CombinationOpinionYesPolyNo,
	types.CombinationOpinionNoPolyYes,
}

// Scanner turns a matcher snapshot and a book-fetcher scan frame into
// ranked, sized, classified opportunities, per spec §4.E.
type Scanner struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Scanner.
func New(cfg Config, logger *zap.Logger) (*Scanner, error) {
	if cfg.Fees == nil {
		return nil, fmt.Errorf("scanner: fee model required")
	}
	if logger == nil {
		return nil, fmt.Errorf("scanner: logger required")
	}
	if cfg.MaxPerTradeShares <= 0 {
		cfg.MaxPerTradeShares = 1000
	}
	if cfg.MaxNotional <= 0 {
		cfg.MaxNotional = 5000
	}
	return &Scanner{cfg: cfg, logger: logger}, nil
}

// Scan considers both crossing combinations for every active pair in
// pairs against frame, emitting one opportunity record per combination
// whose two books are both in the frame (spec §8 invariant: "at most two opportunity
// records" per pair per frame). Discarded combinations are still
// returned, tagged StrategyDiscard with a SkipReason, so callers/tests can
// audit why an opportunity did not fire without re-deriving the scan.
func (s *Scanner) Scan(pairs []types.MarketPair, frame types.ScanFrame) []types.Opportunity {
	start := time.Now()
	defer func() { ScanDurationSeconds.Observe(time.Since(start).Seconds()) }()

	var out []types.Opportunity
	for _, pair := range pairs {
		if !pair.Active() {
			continue
		}
		for _, combo := range allCombinations {
			opp, ok := s.evaluate(pair, combo, frame)
			if !ok {
				continue
			}
			out = append(out, opp)
			OpportunitiesEmittedTotal.WithLabelValues(string(opp.Strategy)).Inc()
			if opp.Strategy != types.StrategyDiscard {
				EffectiveEdgeObserved.Observe(opp.EffectiveEdge)
			}
		}
	}
	return out
}

// evaluate implements spec §4.E steps 1-6 for one (pair, combination),
// returning false only when there is nothing worth recording at all (a
// side's book is entirely missing from the frame).
func (s *Scanner) evaluate(pair types.MarketPair, combo types.Combination, frame types.ScanFrame) (types.Opportunity, bool) {
	opinionToken, polymarketToken := combo.Legs(pair)

	opinionBook, ok := frame.Snapshot(opinionToken)
	if !ok {
		OpportunitiesSkippedTotal.WithLabelValues("opinion_book_missing").Inc()
		return types.Opportunity{}, false
	}
	polymarketBook, ok := frame.Snapshot(polymarketToken)
	if !ok {
		OpportunitiesSkippedTotal.WithLabelValues("polymarket_book_missing").Inc()
		return types.Opportunity{}, false
	}

	opinionAsk, hasOpinionAsk := opinionBook.BestAsk()
	polyAsk, hasPolyAsk := polymarketBook.BestAsk()

	opp := types.Opportunity{
		ID:              uuid.NewString(),
		Pair:            pair,
		Combination:     combo,
		OpinionToken:    opinionToken,
		PolymarketToken: polymarketToken,
		DetectedAt:      time.Now(),
		FrameStamp:      frame.StampedAt,
	}

	if !hasOpinionAsk || opinionAsk.Size <= 0 || !hasPolyAsk || polyAsk.Size <= 0 {
		opp.Strategy = types.StrategyDiscard
		opp.SkipReason = "zero_depth"
		OpportunitiesSkippedTotal.WithLabelValues("zero_depth").Inc()
		return opp, true
	}

	opp.OpinionAskPrice = opinionAsk.Price
	opp.OpinionAskDepth = opinionAsk.Size
	opp.PolymarketAskPrice = polyAsk.Price
	opp.PolymarketAskDepth = polyAsk.Size

	priceSum := opinionAsk.Price + polyAsk.Price
	opp.RawEdge = 1 - priceSum

	if opp.RawEdge <= 0 {
		opp.Strategy = types.StrategyDiscard
		opp.SkipReason = "raw_edge_non_positive"
		OpportunitiesSkippedTotal.WithLabelValues("raw_edge_non_positive").Inc()
		return opp, true
	}

	sizeCap := opinionAsk.Size
	if polyAsk.Size < sizeCap {
		sizeCap = polyAsk.Size
	}
	if s.cfg.MaxPerTradeShares < sizeCap {
		sizeCap = s.cfg.MaxPerTradeShares
	}
	if notionalCap := s.cfg.MaxNotional / priceSum; notionalCap < sizeCap {
		sizeCap = notionalCap
	}
	opp.SizeCap = sizeCap

	opinionEffCost := s.cfg.Fees.EffectiveCostPerShare(types.VenueOpinion, opinionAsk.Price, sizeCap)
	opp.EffectiveEdge = 1 - (opinionEffCost + polyAsk.Price)

	daysToResolution := pair.ResolutionDate.Sub(frame.StampedAt).Hours() / 24
	if daysToResolution <= 0 {
		daysToResolution = 1
	}
	opp.DaysToResolution = daysToResolution
	opp.AnnualizedReturn = (opp.EffectiveEdge / priceSum) * (365.0 / daysToResolution)

	opp.LiquidityScore = LiquidityScore(opinionBook, polymarketBook)

	switch {
	case opp.EffectiveEdge > s.cfg.ImmediateMaxEdgePct:
		opp.Suspicious = true
		opp.Strategy = types.StrategyDiscard
		opp.SkipReason = "suspicious_edge"
		OpportunitiesSkippedTotal.WithLabelValues("suspicious_edge").Inc()
	case opp.EffectiveEdge > s.cfg.ImmediateMinEdgePct:
		opp.Strategy = types.StrategyImmediate
	case opp.AnnualizedReturn >= s.cfg.LiquidityMinAnnualized:
		opp.Strategy = types.StrategyLiquidity
	default:
		opp.Strategy = types.StrategyDiscard
		opp.SkipReason = "below_thresholds"
		OpportunitiesSkippedTotal.WithLabelValues("below_thresholds").Inc()
	}

	return opp, true
}

// RankImmediate returns immediate-strategy opportunities from opps sorted
// by annualized return, descending, per spec §4.E: "Rank by annualized
// return for the immediate strategy."
func RankImmediate(opps []types.Opportunity) []types.Opportunity {
	var out []types.Opportunity
	for _, o := range opps {
		if o.Strategy == types.StrategyImmediate {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnnualizedReturn > out[j].AnnualizedReturn })
	return out
}

// RankLiquidity returns liquidity-strategy opportunities from opps sorted
// by raw edge, descending, per spec §4.E: "by raw edge for the liquidity
// strategy."
func RankLiquidity(opps []types.Opportunity) []types.Opportunity {
	var out []types.Opportunity
	for _, o := range opps {
		if o.Strategy == types.StrategyLiquidity {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawEdge > out[j].RawEdge })
	return out
}

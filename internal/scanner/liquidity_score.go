package scanner

import (
	"math"

	"github.com/mselser95/arbengine/pkg/types"
)

// scoreWeights mirror original_source/arbitrage_core/liquidity_scorer.py's
// depth/price/spread weighting (0.5/0.3/0.2); left as named constants
// rather than config since spec.md never surfaces them as an operator
// knob.
const (
	depthWeight  = 0.5
	balanceWeight = 0.3
	spreadWeight = 0.2

	minValueThreshold = 10.0
	maxValueForScore  = 5000.0
	maxRelativeSpread = 0.35
	depthBandPct      = 0.05
	minPriceBand      = 0.02
	depthLevels       = 20
)

// oneSideScore holds one venue's book-quality sub-scores, mirroring
// LiquidityScorer.score_orderbook's (depth_score, price_score,
// spread_score) tuple; "price_score" there is really an order-book
// balance score (bid depth vs ask depth), renamed here to say what it
// measures.
type oneSideScore struct {
	depth   float64
	balance float64
	spread  float64
}

// scoreBook computes one venue's liquidity sub-scores from its book
// snapshot, following score_orderbook's depth-within-band /
// bid-ask-imbalance / relative-spread formulas, plus its price-range and
// wide-spread penalty factor.
func scoreBook(book types.BookSnapshot) oneSideScore {
	bestBid, hasBid := book.BestBid()
	bestAsk, hasAsk := book.BestAsk()
	if !hasBid || !hasAsk || bestBid.Price <= 0 || bestAsk.Price <= 0 || bestBid.Price >= bestAsk.Price {
		return oneSideScore{}
	}

	mid := (bestBid.Price + bestAsk.Price) / 2
	band := math.Max(mid*depthBandPct, minPriceBand)

	bidDepth := depthWithinBand(book.Bids, mid-band, true)
	askDepth := depthWithinBand(book.Asks, mid+band, false)

	effectiveDepth := 0.0
	if bidDepth > 0 && askDepth > 0 {
		effectiveDepth = math.Sqrt(bidDepth * askDepth)
	}

	depthScore := 0.0
	if effectiveDepth >= minValueThreshold {
		normalized := math.Min(effectiveDepth/maxValueForScore, 1.0)
		depthScore = 100.0 * math.Sqrt(normalized)
	}

	balanceScore := 0.0
	if bidDepth+askDepth > 0 {
		imbalance := math.Abs(bidDepth-askDepth) / (bidDepth + askDepth)
		balanceScore = 100.0 * (1.0 - imbalance)
	}

	spread := bestAsk.Price - bestBid.Price
	relativeSpread := spread
	if mid > 0.01 {
		relativeSpread = spread / mid
	}
	spreadRatio := math.Min(relativeSpread/maxRelativeSpread, 1.0)
	spreadScore := 100.0 * (1.0 - spreadRatio)

	penalty := 1.0
	if bestBid.Price < 0.05 || bestBid.Price > 0.95 || bestAsk.Price < 0.05 || bestAsk.Price > 0.95 {
		penalty = math.Min(penalty, 0.1)
	}
	if spread > 0.02 {
		penalty = math.Min(penalty, 0.3)
	}
	if penalty < 1.0 {
		depthScore *= penalty
		balanceScore *= penalty
		spreadScore *= penalty
	}

	return oneSideScore{depth: depthScore, balance: balanceScore, spread: spreadScore}
}

func depthWithinBand(levels []types.BookLevel, bound float64, isBid bool) float64 {
	total := 0.0
	n := len(levels)
	if n > depthLevels {
		n = depthLevels
	}
	for _, l := range levels[:n] {
		if isBid {
			if l.Price >= bound {
				total += l.Size
			}
		} else {
			if l.Price <= bound {
				total += l.Size
			}
		}
	}
	return total
}

func (s oneSideScore) total() float64 {
	return depthWeight*s.depth + balanceWeight*s.balance + spreadWeight*s.spread
}

// LiquidityScore combines an Opinion and Polymarket book snapshot into a
// single 0-100 score for ranking liquidity-strategy candidates, following
// score_market_pair: average the two venues' totals, then apply a
// cross-platform-balance bonus of up to 20%.
func LiquidityScore(opinionBook, polymarketBook types.BookSnapshot) float64 {
	opinion := scoreBook(opinionBook)
	poly := scoreBook(polymarketBook)

	opinionTotal := opinion.total()
	polyTotal := poly.total()

	balance := 0.0
	if opinionTotal+polyTotal > 0 {
		balance = 1.0 - math.Abs(opinionTotal-polyTotal)/(opinionTotal+polyTotal)
	}

	base := (opinionTotal + polyTotal) / 2.0
	return base * (1.0 + 0.2*balance)
}

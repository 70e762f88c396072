// Package scanner implements the opportunity scanner (spec §4.E): it
// combines a matched-pair snapshot with a book-fetcher scan frame and the
// fee model to emit ranked, sized, classified Opportunity records.
// Grounded on internal/arbitrage/detector.go
// (checkArbitrageForToken / detectMultiOutcome) sizing-and-rejection
// pipeline, converted from single-venue N-outcome sum check
// to the two-venue two-combination crossing check spec §4.E describes.
package scanner

import (
	"github.com/mselser95/arbengine/internal/fees"
)

// Config holds the scanner's thresholds, all overridable per spec §6's
// configuration table.
type Config struct {
	ImmediateMinEdgePct     float64 // default 0.02 (effective edge, spec §6 immediate_min_edge_pct)
	ImmediateMaxEdgePct     float64 // default 0.50 — above this, suspicious
	LiquidityMinAnnualized  float64 // default 0.20 (annualized fraction, spec §6 liquidity_min_annualized_pct)
	MaxPerTradeShares       float64 // default 1000
	MaxNotional             float64 // hard cap on (p1+p2)*qty, default 5000

	Fees *fees.Model
}

// DefaultConfig returns spec §6's default thresholds.
func DefaultConfig(feeModel *fees.Model) Config {
	return Config{
		ImmediateMinEdgePct:    0.02,
		ImmediateMaxEdgePct:    0.50,
		LiquidityMinAnnualized: 0.20,
		MaxPerTradeShares:      1000,
		MaxNotional:            5000,
		Fees:                   feeModel,
	}
}

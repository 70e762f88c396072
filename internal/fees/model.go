// Package fees implements the fee & sizing model (spec §4.D), grounded
// directly on original_source/arbitrage_core/fees.py:
// calculate_opinion_fee_rate, calculate_opinion_adjusted_amount,
// calculate_opinion_effective_amount, get_order_size_for_platform,
// calculate_opinion_cost_per_token and round_price.
package fees

import (
	"math"

	"github.com/mselser95/arbengine/pkg/types"
)

// Config holds the fee curve coefficients and the minimum fee floor, all
// exposed as configuration per spec's open question: "the fee-rate curve
// (a, c) was fit from four observations... an implementer should expose
// it, not hard-code."
type Config struct {
	CurveA  float64 // default 0.06
	CurveC  float64 // default 0.0025
	MinFee  float64 // default 0.50 quote units
}

// DefaultConfig returns spec's default fee curve coefficients.
func DefaultConfig() Config {
	return Config{CurveA: 0.06, CurveC: 0.0025, MinFee: 0.50}
}

// Model applies venue-specific fee and sizing rules.
type Model struct {
	cfg Config
}

// New constructs a Model, falling back to DefaultConfig when every field of
// cfg is zero; a partially set cfg is used as given.
func New(cfg Config) *Model {
	if cfg.CurveA == 0 && cfg.CurveC == 0 && cfg.MinFee == 0 {
		cfg = DefaultConfig()
	}
	return &Model{cfg: cfg}
}

// OpinionFeeRate implements fee_rate(p) = a·p·(1-p) + c.
func (m *Model) OpinionFeeRate(price float64) float64 {
	return m.cfg.CurveA*price*(1-price) + m.cfg.CurveC
}

// SizeForPlatform converts a target fill quantity (shares the operator
// wants to hold after fees) into the order quantity to submit, per spec
// §4.D steps 1-5. Polymarket's sizing is the identity function; Opinion's
// follows the MIN_FEE-floor branch.
func (m *Model) SizeForPlatform(venueName types.Venue, price, targetQty float64) (orderQty, effectiveCostPerShare float64) {
	if venueName == types.VenuePolymarket {
		return targetQty, price
	}
	return m.opinionAdjustedAmount(price, targetQty)
}

// opinionAdjustedAmount implements calculate_opinion_adjusted_amount: given
// a target fill Q_target at price p, returns the order quantity to submit
// and the effective cost per share.
func (m *Model) opinionAdjustedAmount(price, targetQty float64) (orderQty, effectiveCostPerShare float64) {
	if price <= 0 || targetQty <= 0 {
		return 0, price
	}

	f := m.OpinionFeeRate(price)

	provisionalOrderQty := targetQty / (1 - f)
	provisionalNominalFee := price * provisionalOrderQty * f

	if provisionalNominalFee > m.cfg.MinFee {
		orderQty = targetQty / (1 - f)
		effectiveCostPerShare = price / (1 - f)
		return orderQty, effectiveCostPerShare
	}

	orderQty = targetQty + m.cfg.MinFee/price
	effectiveCostPerShare = price + m.cfg.MinFee/(price*orderQty)
	return orderQty, effectiveCostPerShare
}

// Received implements the inverse of SizeForPlatform: given an order
// quantity actually submitted, how many shares end up held net of fees.
// Used after fills to compute hedge sizing, per spec §4.D: "The inverse —
// given Q_order, what is Q_received — is produced symmetrically."
func (m *Model) Received(venueName types.Venue, price, orderQty float64) float64 {
	if venueName == types.VenuePolymarket {
		return orderQty
	}
	if price <= 0 || orderQty <= 0 {
		return 0
	}

	f := m.OpinionFeeRate(price)
	nominalFee := price * orderQty * f

	if nominalFee > m.cfg.MinFee {
		return orderQty * (1 - f)
	}

	// actual fee is the floor; deducted from received quantity at
	// actual_fee / price shares, per spec §4.D.
	actualFee := m.cfg.MinFee
	return orderQty - actualFee/price
}

// EffectiveCostPerShare returns the effective per-share cost of acquiring
// targetQty shares at price on the given venue, used by the scanner to
// compute cost-adjusted edge (spec §4.E step 4).
func (m *Model) EffectiveCostPerShare(venueName types.Venue, price, targetQty float64) float64 {
	_, cost := m.SizeForPlatform(venueName, price, targetQty)
	return cost
}

// RoundToTick snaps a price to the nearest multiple of tick, the ground
// truth for the round-trip law in spec §8: RoundToTick is idempotent.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		tick = 0.01
	}
	return math.Round(price/tick) * tick
}

package types

import "time"

// Side is the trading direction of an order. Both legs of an arbitrage
// ticket are always buys of complementary outcome tokens; Side exists for
// completeness of the venue-adapter surface and for cancel/hedge symmetry.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TimeInForce is the order's time-in-force.
type TimeInForce string

const (
	TIF_IOC TimeInForce = "IOC"
	TIF_GTC TimeInForce = "GTC"
)

// OrderState is the lifecycle state of a placed order, venue-reported.
type OrderState string

const (
	OrderPendingSubmit  OrderState = "PENDING_SUBMIT"
	OrderOpen           OrderState = "OPEN"
	OrderPartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderFilled         OrderState = "FILLED"
	OrderCanceled       OrderState = "CANCELED"
	OrderRejected       OrderState = "REJECTED"
)

// Terminal reports whether the state requires no further polling.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderFilled, OrderCanceled, OrderRejected:
		return true
	default:
		return false
	}
}

// OrderTicket is a placed or intended order.
type OrderTicket struct {
	OrderID       string
	Venue         Venue
	Token         Token
	Side          Side
	TargetFillQty float64 // what we want to end up holding
	OrderQty      float64 // what we submit; differs from target under fee withholding
	LimitPrice    float64
	TIF           TimeInForce
	State         OrderState
	FilledQty     float64
	AvgFillPrice  float64
	SubmittedAt   time.Time
	UpdatedAt     time.Time
	Err           error
}

// Remaining returns the unfilled portion of the order.
func (t OrderTicket) Remaining() float64 {
	r := t.OrderQty - t.FilledQty
	if r < 0 {
		return 0
	}
	return r
}

// PositionState tracks a liquidity-strategy ticket's place in the resting
// order lifecycle.
type PositionState string

const (
	PosIdle             PositionState = "IDLE"
	PosResting          PositionState = "RESTING"
	PosPartiallyFilled  PositionState = "PARTIALLY_FILLED"
	PosRepricing        PositionState = "REPRICING"
	PosFilled           PositionState = "FILLED"
	PosHedging          PositionState = "HEDGING"
	PosDone             PositionState = "DONE"
	PosCanceling        PositionState = "CANCELING"
)

// PositionInFlight is a bookkeeping record for one in-progress
// arbitrage: a first-leg ticket and its (eventually placed) hedge.
//
// No component constructs PositionInFlight values: the Supervisor keeps no
// set of them, the strategies track their own orders internally, and every
// DeficitEvent is emitted with a nil Position.
type PositionInFlight struct {
	ID                     string
	Opportunity            Opportunity
	State                  PositionState
	FirstLegTicket         OrderTicket
	SecondLegTicket        *OrderTicket
	FirstFilledQtyAccum    float64
	HedgedQtyAccum         float64
	RemainingEdge          float64 // edge budget left for reconciliation attempts
	HedgeAttempts          int
	CreatedAt              time.Time
	UpdatedAt              time.Time
	LastStatusLog          string
}

// Deficit returns shares filled on the first leg but not yet hedged.
func (p PositionInFlight) Deficit() float64 {
	d := p.FirstFilledQtyAccum - p.HedgedQtyAccum
	if d < 0 {
		return 0
	}
	return d
}

// DeficitEvent is emitted by a strategy when a hedge leg under-fills, and
// consumed by the Reconciliation routine.
type DeficitEvent struct {
	Position      *PositionInFlight
	HedgeVenue    Venue
	HedgeToken    Token
	DeficitQty    float64
	BestAskAtEmit float64
	RemainingEdge float64
	EmittedAt     time.Time
}

// TradeLogEntry is one row of the append-only JSON-lines trade log named in
// spec's "Persisted state" section: one entry per executed leg.
type TradeLogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Venue         Venue     `json:"venue"`
	TokenID       string    `json:"token_id"`
	Outcome       Outcome   `json:"outcome"`
	Side          Side      `json:"side"`
	OrderQty      float64   `json:"order_qty"`
	LimitPrice    float64   `json:"limit_price"`
	FilledQty     float64   `json:"filled_qty"`
	AvgFillPrice  float64   `json:"avg_fill_price"`
	Fee           float64   `json:"fee"`
	OpportunityID string    `json:"opportunity_id"`
}

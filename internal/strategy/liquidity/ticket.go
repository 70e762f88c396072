package liquidity

import (
	"time"

	"github.com/mselser95/arbengine/pkg/types"
)

// ticket tracks one liquidity-strategy resting order through the state
// machine described in spec §4.G:
//
//	IDLE → RESTING → PARTIALLY_FILLED ↔ RESTING → FILLED → HEDGING → DONE
//	                              ↓
//	                        REPRICING → RESTING
//	                              ↓
//	                         CANCELING → IDLE (on exit)
type ticket struct {
	key string // pair ID + combination, one ticket per (pair, combination)

	opportunity types.Opportunity

	state types.PositionState

	restVenue types.Venue
	restToken types.Token
	restOrderID string
	restPrice   float64
	restOrderQty float64

	hedgeVenue types.Venue
	hedgeToken types.Token

	qTarget           float64
	firstFilledAccum  float64
	hedgedAccum       float64

	lastRepriceAt time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

func ticketKey(pairID string, combo types.Combination) string {
	return pairID + ":" + string(combo)
}

// Deficit returns shares filled on the resting leg but not yet hedged.
func (t *ticket) Deficit() float64 {
	d := t.firstFilledAccum - t.hedgedAccum
	if d < 0 {
		return 0
	}
	return d
}

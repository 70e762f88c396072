package types

import "time"

// BookLevel is one price level of an order book; Size is the shares the
// venue reports at that price level alone, not cumulative across better
// levels (depth readers sum levels themselves).
type BookLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot is a point-in-time view of one token's order book.
//
// Invariant: when both sides are non-empty, BestBid().Price <
// BestAsk().Price, and every level's Price lies on the token's tick grid.
type BookSnapshot struct {
	Token     Token
	Venue     Venue
	Bids      []BookLevel // descending price
	Asks      []BookLevel // ascending price
	Timestamp time.Time
	Stale     bool
}

// BestBid returns the highest bid level, or the zero value and false if the
// book has no bids.
func (s BookSnapshot) BestBid() (BookLevel, bool) {
	if len(s.Bids) == 0 {
		return BookLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, or the zero value and false if the
// book has no asks.
func (s BookSnapshot) BestAsk() (BookLevel, bool) {
	if len(s.Asks) == 0 {
		return BookLevel{}, false
	}
	return s.Asks[0], true
}

// Age returns how long ago the snapshot was taken relative to now.
func (s BookSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// ScanFrame is the set of book snapshots gathered in one scan cycle,
// treated as a single consistent view. Immutable after publication: the
// Book Fetcher publishes a frame and never mutates it in place.
type ScanFrame struct {
	Snapshots map[string]BookSnapshot // keyed by Token.Key()
	StampedAt time.Time
}

// Snapshot looks up a token's snapshot in the frame.
func (f ScanFrame) Snapshot(t Token) (BookSnapshot, bool) {
	s, ok := f.Snapshots[t.Key()]
	return s, ok
}

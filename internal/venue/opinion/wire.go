package opinion

import "time"

// Wire response shapes for Opinion's REST API. Prices and sizes travel as
// JSON strings on the wire (as on Polymarket's CLOB, per's
// pkg/types/orderbook.go), so every numeric field here is a string and
// normalized to float64 by the adapter.

type marketWire struct {
	MarketID       string    `json:"market_id"`
	Title          string    `json:"title"`
	ResolutionDate time.Time `json:"resolution_date"`
	Closed         bool      `json:"closed"`
	YesTokenID     string    `json:"yes_token_id"`
	NoTokenID      string    `json:"no_token_id"`
	TickSize       string    `json:"tick_size"`
	MinOrderSize   string    `json:"min_order_size"`
}

type marketsPageWire struct {
	Markets    []marketWire `json:"markets"`
	NextCursor string       `json:"next_cursor"`
}

type bookLevelWire struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookWire struct {
	TokenID   string          `json:"token_id"`
	Bids      []bookLevelWire `json:"bids"`
	Asks      []bookLevelWire `json:"asks"`
	Timestamp string          `json:"timestamp"`
	NoBook    bool            `json:"no_book"`
}

type booksBatchWire struct {
	Books map[string]bookWire `json:"books"`
}

type orderResponseWire struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	SizeFilled   string `json:"size_filled"`
	Size         string `json:"size"`
	AvgFillPrice string `json:"avg_fill_price"`
}

type placeOrderRequestWire struct {
	TokenID    string `json:"token_id"`
	Side       string `json:"side"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	TimeInForc string `json:"time_in_force"`
}

type cancelResponseWire struct {
	Status string `json:"status"` // "ack" | "already_terminal"
}

type balanceWire struct {
	Asset     string `json:"asset"`
	Available string `json:"available"`
	Reserved  string `json:"reserved"`
}

type balancesResponseWire struct {
	Balances []balanceWire `json:"balances"`
}

type authResponseWire struct {
	SessionToken string `json:"session_token"`
}

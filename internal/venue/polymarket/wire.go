package polymarket

import "time"

// Wire shapes for Polymarket's Gamma (market discovery) and CLOB (book,
// order) REST APIs, mirroring pkg/types/market.go and
// pkg/types/orderbook.go string-encoded numeric fields.

type gammaMarketWire struct {
	ConditionID    string    `json:"conditionId"`
	Question       string    `json:"question"`
	Slug           string    `json:"slug"`
	EndDate        time.Time `json:"endDate"`
	Closed         bool      `json:"closed"`
	ClobTokenIds   string    `json:"clobTokenIds"` // JSON-encoded array of two token ids, [YES, NO]
	OrderMinSize   string    `json:"orderMinSize"`
	OrderPriceMinTickSize string `json:"orderPriceMinTickSize"`
}

type gammaMarketsPageWire struct {
	Markets []gammaMarketWire `json:"data"`
	HasMore bool              `json:"hasMore"`
}

type clobBookLevelWire struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type clobBookWire struct {
	Market    string              `json:"market"`
	AssetID   string              `json:"asset_id"`
	Bids      []clobBookLevelWire `json:"bids"`
	Asks      []clobBookLevelWire `json:"asks"`
	Timestamp string              `json:"timestamp"`
}

type clobOrderResponseWire struct {
	OrderID      string `json:"orderID"`
	Status       string `json:"status"`
	SizeMatched  string `json:"sizeMatched"`
	OriginalSize string `json:"originalSize"`
	Price        string `json:"price"`
}

type clobCancelResponseWire struct {
	Success bool `json:"success"`
	// NotFound indicates the order was already terminal server-side.
	NotFound bool `json:"not_found"`
}

type dataAPIBalanceWire struct {
	Asset     string `json:"asset"`
	Available string `json:"available"`
	Reserved  string `json:"reserved"`
}

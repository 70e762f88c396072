// Package venue defines the uniform Venue Client Adapter surface (spec
// §4.A) that both the Opinion and Polymarket concrete adapters implement,
// plus the shared retry/backoff and poll-until-terminal primitives used by
// every strategy on top of them.
package venue

import (
	"context"
	"time"

	"github.com/mselser95/arbengine/pkg/types"
)

// AckResult is the result of cancel_order: either an ACK or
// ALREADY_TERMINAL, per spec §4.A.
type AckResult string

const (
	AckAccepted        AckResult = "ACK"
	AckAlreadyTerminal AckResult = "ALREADY_TERMINAL"
)

// MarketPage is one page of list_markets: a batch of summaries plus an
// opaque cursor for the next page, empty when exhausted.
type MarketPage struct {
	Markets    []types.MarketSummary
	NextCursor string
}

// Client is the uniform operation set spec's §4.A table requires of both
// venue adapters. Every operation is independent of which venue it wraps;
// venue-specific auth, signing and endpoint shapes live entirely inside the
// concrete implementations in internal/venue/opinion and
// internal/venue/polymarket.
type Client interface {
	// Name returns the venue this client talks to.
	Name() types.Venue

	// ListMarkets returns one page of active markets. statusFilter is
	// venue-defined ("active", "closed", ...); cursor is the opaque
	// pagination token from a prior page, empty for the first page.
	ListMarkets(ctx context.Context, statusFilter, cursor string) (MarketPage, error)

	// GetBook fetches one token's current order book. A snapshot with
	// Stale set to true is returned (not an error) when the venue reports
	// no book for the token.
	GetBook(ctx context.Context, token types.Token) (types.BookSnapshot, error)

	// GetBooksBatch fetches books for a set of tokens in one round trip.
	// Partial results are allowed: a token whose book could not be fetched
	// is simply absent from the returned map.
	GetBooksBatch(ctx context.Context, tokens []types.Token) (map[string]types.BookSnapshot, error)

	// PlaceOrder submits a ticket and returns the venue-assigned order id
	// plus the initial reported state.
	PlaceOrder(ctx context.Context, ticket types.OrderTicket) (orderID string, state types.OrderState, err error)

	// CancelOrder requests cancellation of an open order.
	CancelOrder(ctx context.Context, orderID string) (AckResult, error)

	// PollOrder returns the order's current state, cumulative filled
	// quantity and average fill price.
	PollOrder(ctx context.Context, orderID string) (types.OrderTicket, error)

	// GetBalances returns available/reserved amounts keyed by asset
	// (collateral currency or outcome token id).
	GetBalances(ctx context.Context) ([]types.Balance, error)

	// RoundToTick snaps a price to this venue's tick grid, per the
	// round-trip law in spec §8: RoundToTick(RoundToTick(x)) == RoundToTick(x).
	RoundToTick(token types.Token, price float64) float64

	// Degraded reports whether the adapter has marked this venue degraded
	// after repeated failures, per spec §4.A, so the Supervisor can pause
	// strategies against it.
	Degraded() bool
}

// RetryConfig configures the adapter-level retry/backoff loop, per spec
// §4.A: "retrying transient failures with exponential backoff (base 500ms,
// factor 2, cap 8s, max 5 attempts)".
type RetryConfig struct {
	Base       time.Duration
	Factor     float64
	Cap        time.Duration
	MaxAttempts int
}

// DefaultRetryConfig returns spec's default backoff schedule.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Base:        500 * time.Millisecond,
		Factor:      2,
		Cap:         8 * time.Second,
		MaxAttempts: 5,
	}
}

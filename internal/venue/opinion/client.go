// Package opinion implements the Venue Client Adapter (spec §4.A) for the
// Opinion venue: session-based wallet auth plus HMAC-signed requests,
// grounded on original_source/opinion.py's opinion_clob_sdk usage pattern
// generalized to Go.
package opinion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	goccyjson "github.com/goccy/go-json"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
	"github.com/mselser95/arbengine/pkg/venueerr"
	"go.uber.org/zap"
)

const degradedThreshold = 5

// Config configures the Opinion adapter.
type Config struct {
	BaseURL       string
	WalletAddress string
	SharedSecret  string // used to derive the per-session HMAC signing key
	HTTPTimeout   time.Duration
	Retry         venue.RetryConfig
	Logger        *zap.Logger
}

// Client is the Opinion venue adapter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	session    *session
	logger     *zap.Logger

	consecutiveFailures atomic.Int64
	degraded            atomic.Bool
}

// New constructs an Opinion adapter. It does not perform network I/O; the
// session is established lazily on first authenticated call.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("opinion: base URL required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("opinion: logger required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = venue.DefaultRetryConfig()
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		session:    newSession(),
		logger:     cfg.Logger,
	}, nil
}

// Name implements venue.Client.
func (c *Client) Name() types.Venue { return types.VenueOpinion }

// Degraded implements venue.Client.
func (c *Client) Degraded() bool { return c.degraded.Load() }

func (c *Client) recordSuccess() {
	c.consecutiveFailures.Store(0)
	if c.degraded.CompareAndSwap(true, false) {
		c.logger.Info("opinion-venue-recovered")
	}
}

func (c *Client) recordFailure() {
	n := c.consecutiveFailures.Add(1)
	if n >= degradedThreshold && c.degraded.CompareAndSwap(false, true) {
		c.logger.Warn("opinion-venue-degraded", zap.Int64("consecutive-failures", n))
	}
}

// ensureSession authenticates and refreshes the HMAC signing key when the
// current session is absent or close to expiry.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.session.valid(time.Now().Add(30 * time.Second)) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/auth/session", bytes.NewReader(
		[]byte(fmt.Sprintf(`{"wallet_address":%q}`, c.cfg.WalletAddress)),
	))
	if err != nil {
		return venueerr.New(venueerr.Unknown, string(types.VenueOpinion), "auth", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return venueerr.New(venueerr.Transient, string(types.VenueOpinion), "auth", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return venueerr.New(classifyStatus(resp.StatusCode), string(types.VenueOpinion), "auth", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var wire authResponseWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "auth", err)
	}

	expiresAt, err := decodeSessionExpiry(wire.SessionToken)
	if err != nil {
		return venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "auth", err)
	}

	signingKey, err := deriveSigningKey(c.cfg.SharedSecret, wire.SessionToken)
	if err != nil {
		return venueerr.New(venueerr.Unknown, string(types.VenueOpinion), "auth", err)
	}

	c.session.set(wire.SessionToken, expiresAt, signingKey)
	return nil
}

// doSigned performs a signed HTTP request against Opinion's API,
// classifying the result per spec §7.
func (c *Client) doSigned(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	token, signingKey := c.session.snapshot()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := signRequest(signingKey, timestamp, method, path, string(body))

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, venueerr.New(venueerr.Unknown, string(types.VenueOpinion), path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OP-SESSION", token)
	req.Header.Set("OP-TIMESTAMP", timestamp)
	req.Header.Set("OP-SIGNATURE", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, venueerr.New(venueerr.Transient, string(types.VenueOpinion), path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, venueerr.New(venueerr.Transient, string(types.VenueOpinion), path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, venueerr.New(classifyStatus(resp.StatusCode), string(types.VenueOpinion), path, fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}

	return respBody, nil
}

func classifyStatus(status int) venueerr.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return venueerr.RateLimited
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return venueerr.Validation
	case status == http.StatusPaymentRequired || status == http.StatusForbidden:
		return venueerr.InsufficientBalance
	case status >= 500:
		return venueerr.Transient
	default:
		return venueerr.Unknown
	}
}

// ListMarkets implements venue.Client.
func (c *Client) ListMarkets(ctx context.Context, statusFilter, cursor string) (page venue.MarketPage, err error) {
	err = venue.Retry(ctx, c.cfg.Retry, func(ctx context.Context) error {
		path := fmt.Sprintf("/v1/markets?status=%s&cursor=%s", statusFilter, cursor)
		body, err := c.doSigned(ctx, http.MethodGet, path, nil)
		if err != nil {
			c.recordFailure()
			return err
		}
		c.recordSuccess()

		var wire marketsPageWire
		if err := goccyjson.Unmarshal(body, &wire); err != nil {
			return venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "list_markets", err)
		}

		page.NextCursor = wire.NextCursor
		page.Markets = make([]types.MarketSummary, 0, len(wire.Markets))
		for _, m := range wire.Markets {
			tick, _ := strconv.ParseFloat(m.TickSize, 64)
			minSize, _ := strconv.ParseFloat(m.MinOrderSize, 64)
			if tick == 0 {
				tick = 0.01
			}
			base := types.Token{Venue: types.VenueOpinion, MarketID: m.MarketID, TickSize: tick, MinOrderSize: minSize, PriceDecimals: 3}
			yes := base
			yes.TokenID = m.YesTokenID
			yes.Outcome = types.OutcomeYes
			no := base
			no.TokenID = m.NoTokenID
			no.Outcome = types.OutcomeNo

			page.Markets = append(page.Markets, types.MarketSummary{
				Venue:          types.VenueOpinion,
				MarketID:       m.MarketID,
				Title:          m.Title,
				ResolutionDate: m.ResolutionDate,
				YesToken:       yes,
				NoToken:        no,
				Closed:         m.Closed,
			})
		}
		return nil
	})
	return page, err
}

// GetBook implements venue.Client.
func (c *Client) GetBook(ctx context.Context, token types.Token) (snapshot types.BookSnapshot, err error) {
	err = venue.Retry(ctx, c.cfg.Retry, func(ctx context.Context) error {
		path := fmt.Sprintf("/v1/book?token_id=%s", token.TokenID)
		body, err := c.doSigned(ctx, http.MethodGet, path, nil)
		if err != nil {
			c.recordFailure()
			return err
		}
		c.recordSuccess()

		var wire bookWire
		if err := goccyjson.Unmarshal(body, &wire); err != nil {
			return venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "get_book", err)
		}

		snapshot = bookFromWire(token, wire)
		return nil
	})
	return snapshot, err
}

// GetBooksBatch implements venue.Client.
func (c *Client) GetBooksBatch(ctx context.Context, tokens []types.Token) (result map[string]types.BookSnapshot, err error) {
	byID := make(map[string]types.Token, len(tokens))
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		byID[t.TokenID] = t
		ids = append(ids, t.TokenID)
	}

	result = make(map[string]types.BookSnapshot, len(tokens))
	err = venue.Retry(ctx, c.cfg.Retry, func(ctx context.Context) error {
		reqBody, _ := goccyjson.Marshal(map[string][]string{"token_ids": ids})
		body, err := c.doSigned(ctx, http.MethodPost, "/v1/books/batch", reqBody)
		if err != nil {
			c.recordFailure()
			return err
		}
		c.recordSuccess()

		var wire booksBatchWire
		if err := goccyjson.Unmarshal(body, &wire); err != nil {
			return venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "get_books_batch", err)
		}

		for tokenID, bw := range wire.Books {
			token, ok := byID[tokenID]
			if !ok {
				continue
			}
			result[token.Key()] = bookFromWire(token, bw)
		}
		return nil
	})
	return result, err
}

func bookFromWire(token types.Token, wire bookWire) types.BookSnapshot {
	snapshot := types.BookSnapshot{
		Token:     token,
		Venue:     types.VenueOpinion,
		Timestamp: time.Now(),
		Stale:     wire.NoBook,
	}
	snapshot.Bids = levelsFromWire(wire.Bids)
	snapshot.Asks = levelsFromWire(wire.Asks)
	return snapshot
}

func levelsFromWire(levels []bookLevelWire) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(levels))
	for _, l := range levels {
		price, err1 := strconv.ParseFloat(l.Price, 64)
		size, err2 := strconv.ParseFloat(l.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, types.BookLevel{Price: price, Size: size})
	}
	return out
}

// PlaceOrder implements venue.Client.
func (c *Client) PlaceOrder(ctx context.Context, ticket types.OrderTicket) (orderID string, state types.OrderState, err error) {
	side := "buy"
	if ticket.Side == types.SideSell {
		side = "sell"
	}
	tif := "IOC"
	if ticket.TIF == types.TIF_GTC {
		tif = "GTC"
	}

	reqWire := placeOrderRequestWire{
		TokenID:    ticket.Token.TokenID,
		Side:       side,
		Size:       strconv.FormatFloat(ticket.OrderQty, 'f', -1, 64),
		Price:      strconv.FormatFloat(ticket.LimitPrice, 'f', -1, 64),
		TimeInForc: tif,
	}
	reqBody, _ := goccyjson.Marshal(reqWire)

	body, err := c.doSigned(ctx, http.MethodPost, "/v1/orders", reqBody)
	if err != nil {
		c.recordFailure()
		return "", "", err
	}
	c.recordSuccess()

	var wire orderResponseWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return "", "", venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "place_order", err)
	}

	return wire.OrderID, orderStateFromWire(wire.Status), nil
}

// CancelOrder implements venue.Client.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (venue.AckResult, error) {
	body, err := c.doSigned(ctx, http.MethodDelete, fmt.Sprintf("/v1/orders/%s", orderID), nil)
	if err != nil {
		c.recordFailure()
		return "", err
	}
	c.recordSuccess()

	var wire cancelResponseWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return "", venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "cancel_order", err)
	}
	if wire.Status == "already_terminal" {
		return venue.AckAlreadyTerminal, nil
	}
	return venue.AckAccepted, nil
}

// PollOrder implements venue.Client.
func (c *Client) PollOrder(ctx context.Context, orderID string) (ticket types.OrderTicket, err error) {
	body, err := c.doSigned(ctx, http.MethodGet, fmt.Sprintf("/v1/orders/%s", orderID), nil)
	if err != nil {
		c.recordFailure()
		return ticket, err
	}
	c.recordSuccess()

	var wire orderResponseWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return ticket, venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "poll_order", err)
	}

	filled, _ := strconv.ParseFloat(wire.SizeFilled, 64)
	size, _ := strconv.ParseFloat(wire.Size, 64)
	avgPrice, _ := strconv.ParseFloat(wire.AvgFillPrice, 64)

	ticket = types.OrderTicket{
		OrderID:      wire.OrderID,
		Venue:        types.VenueOpinion,
		State:        orderStateFromWire(wire.Status),
		FilledQty:    filled,
		OrderQty:     size,
		AvgFillPrice: avgPrice,
		UpdatedAt:    time.Now(),
	}
	return ticket, nil
}

// GetBalances implements venue.Client.
func (c *Client) GetBalances(ctx context.Context) (balances []types.Balance, err error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/v1/balances", nil)
	if err != nil {
		c.recordFailure()
		return nil, err
	}
	c.recordSuccess()

	var wire balancesResponseWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return nil, venueerr.New(venueerr.SchemaDrift, string(types.VenueOpinion), "get_balances", err)
	}

	balances = make([]types.Balance, 0, len(wire.Balances))
	for _, b := range wire.Balances {
		available, _ := strconv.ParseFloat(b.Available, 64)
		reserved, _ := strconv.ParseFloat(b.Reserved, 64)
		balances = append(balances, types.Balance{Asset: b.Asset, Available: available, Reserved: reserved})
	}
	return balances, nil
}

// RoundToTick implements venue.Client, grounded on
// original_source/arbitrage_core/fees.py's round_price.
func (c *Client) RoundToTick(token types.Token, price float64) float64 {
	tick := token.TickSize
	if tick <= 0 {
		tick = 0.01
	}
	return math.Round(price/tick) * tick
}

func orderStateFromWire(status string) types.OrderState {
	switch status {
	case "pending", "pending_submit":
		return types.OrderPendingSubmit
	case "open":
		return types.OrderOpen
	case "partially_filled":
		return types.OrderPartiallyFilled
	case "filled":
		return types.OrderFilled
	case "canceled", "cancelled":
		return types.OrderCanceled
	case "rejected":
		return types.OrderRejected
	default:
		return types.OrderPendingSubmit
	}
}

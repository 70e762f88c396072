// Package polymarket implements the Venue Client Adapter (spec §4.A) for
// Polymarket: Gamma API market discovery, CLOB REST order book/order
// endpoints, EIP-712 order signing via go-order-utils, and HMAC L2 request
// auth — all carried over from the prior adapter's
// internal/execution/order_client.go and pkg/wallet/client.go.
package polymarket

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	goccyjson "github.com/goccy/go-json"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
	"github.com/mselser95/arbengine/pkg/venueerr"
	"go.uber.org/zap"
)

const degradedThreshold = 5

// Config configures the Polymarket adapter.
type Config struct {
	GammaBaseURL    string
	CLOBBaseURL     string
	PrivateKeyHex   string // hex-encoded ECDSA key, "0x"-prefixed or not
	APIKey          string
	APISecret       string
	APIPassphrase   string
	ChainID         int64
	ExchangeAddress string
	HTTPTimeout     time.Duration
	Retry           venue.RetryConfig
	Logger          *zap.Logger
}

// Client is the Polymarket venue adapter.
type Client struct {
	cfg             Config
	httpClient      *http.Client
	privateKey      *ecdsa.PrivateKey
	exchangeAddress common.Address
	logger          *zap.Logger

	consecutiveFailures atomic.Int64
	degraded            atomic.Bool
}

// New constructs a Polymarket adapter from a hex-encoded private key and
// CLOB API credentials.
func New(cfg Config) (*Client, error) {
	if cfg.GammaBaseURL == "" || cfg.CLOBBaseURL == "" {
		return nil, fmt.Errorf("polymarket: gamma and clob base URLs required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("polymarket: logger required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = venue.DefaultRetryConfig()
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 137 // Polygon mainnet, per pkg/wallet/client.go
	}

	var privateKey *ecdsa.PrivateKey
	if cfg.PrivateKeyHex != "" {
		key, err := gethcrypto.HexToECDSA(trimHexPrefix(cfg.PrivateKeyHex))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		privateKey = key
	}

	return &Client{
		cfg:             cfg,
		httpClient:      &http.Client{Timeout: cfg.HTTPTimeout},
		privateKey:      privateKey,
		exchangeAddress: common.HexToAddress(cfg.ExchangeAddress),
		logger:          cfg.Logger,
	}, nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Name implements venue.Client.
func (c *Client) Name() types.Venue { return types.VenuePolymarket }

// Degraded implements venue.Client.
func (c *Client) Degraded() bool { return c.degraded.Load() }

func (c *Client) recordSuccess() {
	c.consecutiveFailures.Store(0)
	if c.degraded.CompareAndSwap(true, false) {
		c.logger.Info("polymarket-venue-recovered")
	}
}

func (c *Client) recordFailure() {
	n := c.consecutiveFailures.Add(1)
	if n >= degradedThreshold && c.degraded.CompareAndSwap(false, true) {
		c.logger.Warn("polymarket-venue-degraded", zap.Int64("consecutive-failures", n))
	}
}

func classifyStatus(status int) venueerr.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return venueerr.RateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return venueerr.Validation
	case status == http.StatusPaymentRequired || status == http.StatusForbidden:
		return venueerr.InsufficientBalance
	case status >= 500:
		return venueerr.Transient
	default:
		return venueerr.Unknown
	}
}

// getJSON issues an unauthenticated GET, used against the Gamma API.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return venueerr.New(venueerr.Unknown, string(types.VenuePolymarket), url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return venueerr.New(venueerr.Transient, string(types.VenuePolymarket), url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return venueerr.New(classifyStatus(resp.StatusCode), string(types.VenuePolymarket), url, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
	if err := goccyjson.Unmarshal(body, out); err != nil {
		return venueerr.New(venueerr.SchemaDrift, string(types.VenuePolymarket), url, err)
	}
	return nil
}

// doSignedCLOB issues an L2-authenticated request against the CLOB API,
// grounded on order_client.go submitOrder HMAC header set.
func (c *Client) doSignedCLOB(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature, err := hmacSign(c.cfg.APISecret, timestamp, method, path, string(body))
	if err != nil {
		return nil, venueerr.New(venueerr.Unknown, string(types.VenuePolymarket), path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.CLOBBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, venueerr.New(venueerr.Unknown, string(types.VenuePolymarket), path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.cfg.APIKey)
	req.Header.Set("POLY_PASSPHRASE", c.cfg.APIPassphrase)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_SIGNATURE", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, venueerr.New(venueerr.Transient, string(types.VenuePolymarket), path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, venueerr.New(venueerr.Transient, string(types.VenuePolymarket), path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, venueerr.New(classifyStatus(resp.StatusCode), string(types.VenuePolymarket), path, fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	return respBody, nil
}

// ListMarkets implements venue.Client, paginating the Gamma API the way
// internal/discovery/client.go's fetchWithPagination did.
func (c *Client) ListMarkets(ctx context.Context, statusFilter, cursor string) (page venue.MarketPage, err error) {
	offset := "0"
	if cursor != "" {
		offset = cursor
	}

	err = venue.Retry(ctx, c.cfg.Retry, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/markets?active=true&closed=false&offset=%s&limit=100", c.cfg.GammaBaseURL, offset)
		var wire gammaMarketsPageWire
		if err := c.getJSON(ctx, url, &wire); err != nil {
			c.recordFailure()
			return err
		}
		c.recordSuccess()

		page.Markets = make([]types.MarketSummary, 0, len(wire.Markets))
		for _, m := range wire.Markets {
			yesID, noID, ok := parseClobTokenIds(m.ClobTokenIds)
			if !ok {
				continue
			}
			tick, _ := strconv.ParseFloat(m.OrderPriceMinTickSize, 64)
			minSize, _ := strconv.ParseFloat(m.OrderMinSize, 64)
			if tick == 0 {
				tick = 0.01
			}
			base := types.Token{Venue: types.VenuePolymarket, MarketID: m.ConditionID, TickSize: tick, MinOrderSize: minSize, PriceDecimals: 3}
			yes := base
			yes.TokenID = yesID
			yes.Outcome = types.OutcomeYes
			no := base
			no.TokenID = noID
			no.Outcome = types.OutcomeNo

			page.Markets = append(page.Markets, types.MarketSummary{
				Venue:          types.VenuePolymarket,
				MarketID:       m.ConditionID,
				Title:          m.Question,
				ResolutionDate: m.EndDate,
				YesToken:       yes,
				NoToken:        no,
				Closed:         m.Closed,
			})
		}

		if wire.HasMore {
			offsetInt, _ := strconv.Atoi(offset)
			page.NextCursor = strconv.Itoa(offsetInt + len(wire.Markets))
		}
		return nil
	})
	return page, err
}

// parseClobTokenIds parses Gamma's JSON-string-encoded two-element array,
// mirroring pkg/types/market.go custom UnmarshalJSON.
func parseClobTokenIds(raw string) (yes, no string, ok bool) {
	var ids []string
	if err := goccyjson.Unmarshal([]byte(raw), &ids); err != nil || len(ids) != 2 {
		return "", "", false
	}
	return ids[0], ids[1], true
}

// GetBook implements venue.Client.
func (c *Client) GetBook(ctx context.Context, token types.Token) (snapshot types.BookSnapshot, err error) {
	err = venue.Retry(ctx, c.cfg.Retry, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/book?token_id=%s", c.cfg.CLOBBaseURL, token.TokenID)
		var wire clobBookWire
		if getErr := c.getJSON(ctx, url, &wire); getErr != nil {
			c.recordFailure()
			return getErr
		}
		c.recordSuccess()
		snapshot = bookFromWire(token, wire)
		return nil
	})
	return snapshot, err
}

// GetBooksBatch implements venue.Client. Polymarket's CLOB has no batch
// book endpoint, so batching is done client-side per token, bounded by the
// caller's configured batch size (internal/bookfetcher enforces the actual
// concurrency and rate limit).
func (c *Client) GetBooksBatch(ctx context.Context, tokens []types.Token) (map[string]types.BookSnapshot, error) {
	result := make(map[string]types.BookSnapshot, len(tokens))
	for _, token := range tokens {
		snapshot, err := c.GetBook(ctx, token)
		if err != nil {
			continue // partial results allowed, per spec §4.A
		}
		result[token.Key()] = snapshot
	}
	return result, nil
}

func bookFromWire(token types.Token, wire clobBookWire) types.BookSnapshot {
	return types.BookSnapshot{
		Token:     token,
		Venue:     types.VenuePolymarket,
		Bids:      clobLevelsFromWire(wire.Bids),
		Asks:      clobLevelsFromWire(wire.Asks),
		Timestamp: time.Now(),
	}
}

func clobLevelsFromWire(levels []clobBookLevelWire) []types.BookLevel {
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

// PlaceOrder implements venue.Client: builds and EIP-712 signs a CTF
// exchange order, then submits it to the CLOB with HMAC L2 auth, exactly
// the two-step flow in order_client.go.
func (c *Client) PlaceOrder(ctx context.Context, ticket types.OrderTicket) (orderID string, state types.OrderState, err error) {
	if c.privateKey == nil {
		return "", "", venueerr.New(venueerr.Validation, string(types.VenuePolymarket), "place_order", fmt.Errorf("no signing key configured"))
	}

	makerAmount := new(big.Int)
	takerAmount := new(big.Int)
	if ticket.Side == types.SideBuy {
		makerAmount.SetString(usdToRawAmount(ticket.OrderQty*ticket.LimitPrice), 10)
		takerAmount.SetString(usdToRawAmount(ticket.OrderQty), 10)
	} else {
		makerAmount.SetString(usdToRawAmount(ticket.OrderQty), 10)
		takerAmount.SetString(usdToRawAmount(ticket.OrderQty*ticket.LimitPrice), 10)
	}

	signedOrder, buildErr := buildSignedOrder(
		c.privateKey,
		c.cfg.ChainID,
		c.exchangeAddress,
		ticket.Token,
		ticket.Side,
		makerAmount,
		takerAmount,
		0,
		time.Now().UnixNano(),
	)
	if buildErr != nil {
		return "", "", venueerr.New(venueerr.Unknown, string(types.VenuePolymarket), "place_order", buildErr)
	}

	tif := "FOK"
	if ticket.TIF == types.TIF_GTC {
		tif = "GTC"
	}
	reqBody, _ := goccyjson.Marshal(map[string]interface{}{
		"order":       signedOrder,
		"owner":       c.cfg.APIKey,
		"orderType":   tif,
	})

	respBody, err := c.doSignedCLOB(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		c.recordFailure()
		return "", "", err
	}
	c.recordSuccess()

	var wire clobOrderResponseWire
	if err := goccyjson.Unmarshal(respBody, &wire); err != nil {
		return "", "", venueerr.New(venueerr.SchemaDrift, string(types.VenuePolymarket), "place_order", err)
	}

	return wire.OrderID, orderStateFromWire(wire.Status), nil
}

// CancelOrder implements venue.Client.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (venue.AckResult, error) {
	body, _ := goccyjson.Marshal(map[string]string{"orderID": orderID})
	resp, err := c.doSignedCLOB(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		c.recordFailure()
		return "", err
	}
	c.recordSuccess()

	var wire clobCancelResponseWire
	if err := goccyjson.Unmarshal(resp, &wire); err != nil {
		return "", venueerr.New(venueerr.SchemaDrift, string(types.VenuePolymarket), "cancel_order", err)
	}
	if wire.NotFound {
		return venue.AckAlreadyTerminal, nil
	}
	return venue.AckAccepted, nil
}

// PollOrder implements venue.Client.
func (c *Client) PollOrder(ctx context.Context, orderID string) (ticket types.OrderTicket, err error) {
	body, err := c.doSignedCLOB(ctx, http.MethodGet, fmt.Sprintf("/order/%s", orderID), nil)
	if err != nil {
		c.recordFailure()
		return ticket, err
	}
	c.recordSuccess()

	var wire clobOrderResponseWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return ticket, venueerr.New(venueerr.SchemaDrift, string(types.VenuePolymarket), "poll_order", err)
	}

	filled, _ := strconv.ParseFloat(wire.SizeMatched, 64)
	size, _ := strconv.ParseFloat(wire.OriginalSize, 64)
	price, _ := strconv.ParseFloat(wire.Price, 64)

	ticket = types.OrderTicket{
		OrderID:      wire.OrderID,
		Venue:        types.VenuePolymarket,
		State:        orderStateFromWire(wire.Status),
		FilledQty:    filled,
		OrderQty:     size,
		AvgFillPrice: price,
		UpdatedAt:    time.Now(),
	}
	return ticket, nil
}

// GetBalances implements venue.Client, delegating on-chain reads to
// pkg/wallet.Client (kept from order_client.go) via the caller-injected
// wallet address; here we expose only the CLOB-reported off-chain view.
func (c *Client) GetBalances(ctx context.Context) ([]types.Balance, error) {
	body, err := c.doSignedCLOB(ctx, http.MethodGet, "/balances", nil)
	if err != nil {
		c.recordFailure()
		return nil, err
	}
	c.recordSuccess()

	var wire []dataAPIBalanceWire
	if err := goccyjson.Unmarshal(body, &wire); err != nil {
		return nil, venueerr.New(venueerr.SchemaDrift, string(types.VenuePolymarket), "get_balances", err)
	}

	balances := make([]types.Balance, 0, len(wire))
	for _, b := range wire {
		available, _ := strconv.ParseFloat(b.Available, 64)
		reserved, _ := strconv.ParseFloat(b.Reserved, 64)
		balances = append(balances, types.Balance{Asset: b.Asset, Available: available, Reserved: reserved})
	}
	return balances, nil
}

// RoundToTick implements venue.Client.
func (c *Client) RoundToTick(token types.Token, price float64) float64 {
	tick := token.TickSize
	if tick <= 0 {
		tick = 0.01
	}
	return math.Round(price/tick) * tick
}

func orderStateFromWire(status string) types.OrderState {
	switch status {
	case "live":
		return types.OrderOpen
	case "matched":
		return types.OrderFilled
	case "delayed", "unmatched":
		return types.OrderPendingSubmit
	case "cancelled", "canceled":
		return types.OrderCanceled
	default:
		return types.OrderPendingSubmit
	}
}

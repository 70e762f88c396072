package httpserver

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// BreakerStatus mirrors internal/circuitbreaker.Status without importing
// the package, so the handler stays wireable against any single-venue
// balance breaker rather than only circuitbreaker's concrete type.
type BreakerStatus struct {
	Enabled          bool      `json:"enabled"`
	LastBalance      float64   `json:"last_balance_usdc"`
	LastCheck        time.Time `json:"last_check"`
	DisableThreshold float64   `json:"disable_threshold_usdc"`
	EnableThreshold  float64   `json:"enable_threshold_usdc"`
	AvgTradeSize     float64   `json:"avg_trade_size_usdc"`
	RecentTradeCount int       `json:"recent_trade_count"`
}

// BreakerSource is the subset of internal/circuitbreaker.BalanceCircuitBreaker
// the breaker handler depends on.
type BreakerSource interface {
	GetStatus() BreakerStatus
}

type breakerResponse struct {
	Venue  string        `json:"venue"`
	Status BreakerStatus `json:"status"`
}

// BreakerHandler serves the Polymarket balance breaker's current state so
// operators can see disable/enable thresholds without grepping logs.
type BreakerHandler struct {
	source BreakerSource
	logger *zap.Logger
}

// NewBreakerHandler constructs a BreakerHandler.
func NewBreakerHandler(source BreakerSource, logger *zap.Logger) *BreakerHandler {
	return &BreakerHandler{source: source, logger: logger}
}

// HandleBreakerStatus writes the breaker's current status as JSON. It only
// accepts GET; any other method is a 405.
func (h *BreakerHandler) HandleBreakerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := breakerResponse{
		Venue:  "polymarket",
		Status: h.source.GetStatus(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("breaker-status-encode-failed", zap.Error(err))
	}
}

package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

// ErrorResponse is the JSON body returned for any non-2xx response from
// this package's handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OpportunitySource is the subset of internal/supervisor.Supervisor the
// opportunities handler depends on.
type OpportunitySource interface {
	LastOpportunities() []types.Opportunity
	Halted() bool
}

type opportunitiesResponse struct {
	Halted        bool                `json:"halted"`
	Opportunities []types.Opportunity `json:"opportunities"`
}

// OpportunitiesHandler serves the current scan cycle's opportunity list,
// replacing the orderbook-snapshot endpoint the teacher's single-venue
// discovery/orderbook stack exposed.
type OpportunitiesHandler struct {
	source OpportunitySource
	logger *zap.Logger
}

// NewOpportunitiesHandler constructs an OpportunitiesHandler.
func NewOpportunitiesHandler(source OpportunitySource, logger *zap.Logger) *OpportunitiesHandler {
	return &OpportunitiesHandler{source: source, logger: logger}
}

// HandleOpportunities writes the latest opportunity list as JSON. It only
// accepts GET; any other method is a 405.
func (h *OpportunitiesHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := opportunitiesResponse{
		Halted:        h.source.Halted(),
		Opportunities: h.source.LastOpportunities(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("opportunities-encode-failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

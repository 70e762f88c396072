package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports a domain condition that should degrade readiness without
// stopping the process — matcher staleness, a sustained both-venues-down
// halt, a tripped balance breaker. A non-nil error is surfaced verbatim in
// the readiness response under the check's registered name.
type Check func() error

// HealthChecker provides liveness/readiness checks. Liveness is a plain
// started-serving flag; readiness additionally folds in a registry of
// domain checks so an operator's load balancer or dashboard can see
// exactly which condition is degrading the engine, not just that it is.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	mu     sync.RWMutex
	checks map[string]Check
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		checks:    make(map[string]Check),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// RegisterCheck adds a named domain check that Ready() evaluates on every
// request. Registering under a name already in use replaces it. Typical
// checks wrap internal/supervisor.Halted() (both venues down past the
// matcher's grace period) or a circuit breaker's IsEnabled().
func (h *HealthChecker) RegisterCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Message string            `json:"message,omitempty"`
	Failing map[string]string `json:"failing,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "healthy",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks. Returns 503 while
// the application is still starting, or once started, whenever any
// registered domain check reports a failure; 200 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		uptime := time.Since(h.startTime)
		if failing := h.runChecks(); len(failing) > 0 {
			resp := HealthResponse{
				Status:  "degraded",
				Uptime:  uptime.String(),
				Failing: failing,
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status: "ready",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *HealthChecker) runChecks() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var failing map[string]string
	for name, check := range h.checks {
		if err := check(); err != nil {
			if failing == nil {
				failing = make(map[string]string, len(h.checks))
			}
			failing[name] = err.Error()
		}
	}
	return failing
}

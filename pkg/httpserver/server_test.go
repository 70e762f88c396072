package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/healthprobe"
	"github.com/mselser95/arbengine/pkg/types"
)

type fakeOpportunitySource struct {
	opportunities []types.Opportunity
	halted        bool
}

func (f *fakeOpportunitySource) LastOpportunities() []types.Opportunity { return f.opportunities }
func (f *fakeOpportunitySource) Halted() bool                          { return f.halted }

type fakeBridge struct {
	served bool
}

func (f *fakeBridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	f.served = true
	w.WriteHeader(http.StatusOK)
}

type fakeBreakerSource struct {
	status BreakerStatus
}

func (f *fakeBreakerSource) GetStatus() BreakerStatus { return f.status }

func TestBreakerStatus_OK(t *testing.T) {
	source := &fakeBreakerSource{status: BreakerStatus{
		Enabled:          true,
		DisableThreshold: 30,
		EnableThreshold:  45,
	}}
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), Breaker: source})

	req := httptest.NewRequest(http.MethodGet, "/api/breaker", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body breakerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "polymarket", body.Venue)
	assert.True(t, body.Status.Enabled)
	assert.Equal(t, 30.0, body.Status.DisableThreshold)
}

func TestBreakerStatus_MethodNotAllowed(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), Breaker: &fakeBreakerSource{}})

	req := httptest.NewRequest(http.MethodPost, "/api/breaker", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}

func TestBreakerStatus_NotRegisteredWhenNil(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/api/breaker", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestNew_MinimalConfig(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	require.NotNil(t, server)
	assert.NotNil(t, server.server)
}

func TestHealthEndpoint(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{"ready_when_set", true, http.StatusOK},
		{"not_ready_initially", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}
			server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: hc})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Result().StatusCode)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestOpportunitiesEndpoint_ReturnsCurrentScan(t *testing.T) {
	source := &fakeOpportunitySource{
		opportunities: []types.Opportunity{{ID: "opp-1", RawEdge: 0.05}},
	}
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), Supervisor: source})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body opportunitiesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Halted)
	require.Len(t, body.Opportunities, 1)
	assert.Equal(t, "opp-1", body.Opportunities[0].ID)
}

func TestOpportunitiesEndpoint_MethodNotAllowed(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), Supervisor: &fakeOpportunitySource{}})

	req := httptest.NewRequest(http.MethodPost, "/api/opportunities", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}

func TestOpportunitiesEndpoint_NotRegisteredWithoutSupervisor(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestWebSocketRoute_OnlyRegisteredWithBridge(t *testing.T) {
	bridge := &fakeBridge{}
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), Bridge: bridge})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.True(t, bridge.served)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Start() }()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-serverDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_Timeouts(t *testing.T) {
	server := New(&Config{Port: "8080", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	assert.Equal(t, 15*time.Second, server.server.ReadTimeout)
	assert.Equal(t, 10*time.Second, server.server.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, server.server.WriteTimeout)
	assert.Equal(t, 60*time.Second, server.server.IdleTimeout)
}

func TestServer_RouteNotFound(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

// Package websocket implements the outbound broadcast bridge for a demo
// dashboard: a hub of gorilla/websocket connections that receive the
// latest scan-cycle opportunities as they are produced, instead of the
// inbound Polymarket market-feed client this package used to hold. There
// is no inbound consumer left to pool since spec.md excludes
// latency arbitrage on push feeds — venue books are polled (internal/venue,
// internal/bookfetcher), not streamed.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

const (
	writeTimeout  = 10 * time.Second
	pingInterval  = 20 * time.Second
	clientBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one broadcast payload: the opportunities from a completed scan
// cycle plus whether the supervisor is currently halted.
type Frame struct {
	Opportunities []types.Opportunity `json:"opportunities"`
	Halted        bool                `json:"halted"`
	StampedAt     time.Time           `json:"stamped_at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected dashboard clients and fans out broadcast frames to
// each one's private write goroutine, dropping a slow client's frame
// rather than blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *zap.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// ServeWS upgrades r to a WebSocket connection and registers it as a
// broadcast recipient until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket-upgrade-failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBufSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	ActiveClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast marshals the given opportunities into a Frame and enqueues it
// to every connected client, dropping it for clients whose send buffer is
// full instead of blocking the scan loop that calls this. The signature
// matches internal/supervisor.Config.Broadcaster structurally so a Hub can
// be wired in directly without an adapter.
func (h *Hub) Broadcast(opportunities []types.Opportunity, halted bool) {
	frame := Frame{Opportunities: opportunities, Halted: halted, StampedAt: time.Now()}
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("broadcast-marshal-failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			FramesDroppedTotal.Inc()
		}
	}
	FramesBroadcastTotal.Inc()
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.remove(c)
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards any client-sent frames (the bridge is broadcast-only)
// but must keep reading so gorilla/websocket processes control frames and
// notices a closed connection.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	ActiveClients.Set(float64(len(h.clients)))
}

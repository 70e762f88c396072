package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_websocket_active_clients",
		Help: "Currently connected dashboard WebSocket clients.",
	})

	FramesBroadcastTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_websocket_frames_broadcast_total",
		Help: "Broadcast frames sent to the hub, regardless of client count.",
	})

	FramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_websocket_frames_dropped_total",
		Help: "Frames dropped for individual clients whose send buffer was full.",
	})
)

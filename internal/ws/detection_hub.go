// Package ws implements the dashboard live-push WebSocket surface (spec
// §6.2's internal/ws adapter): a per-camera client registry that
// broadcasts tracking events pulled off the unidirectional event bus,
// decoupling the hub from the Tracking Pipeline package it would
// otherwise need to import directly (spec §9's cyclic-manager-graph
// break).
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"flowguard/internal/eventbus"
	"flowguard/internal/logging"
)

// Hub manages WebSocket connections for real-time tracking event
// streaming, grouped by camera_id.
type Hub struct {
	// clients maps camera_id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
	log     *logging.Logger
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
		log:     logging.New("ws.hub"),
	}
}

// Register adds a connection for a specific camera.
func (h *Hub) Register(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[cameraID] == nil {
		h.clients[cameraID] = make(map[*websocket.Conn]bool)
	}
	h.clients[cameraID][conn] = true
}

// Unregister removes a connection for a specific camera.
func (h *Hub) Unregister(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[cameraID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, cameraID)
		}
	}
}

// HasClients returns true if there are any clients connected for a camera.
func (h *Hub) HasClients(cameraID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[cameraID]
	return ok && len(conns) > 0
}

// RegisteredCameras returns all camera IDs with at least one client.
func (h *Hub) RegisteredCameras() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cameras := make([]string, 0, len(h.clients))
	for cameraID := range h.clients {
		cameras = append(cameras, cameraID)
	}
	return cameras
}

// BroadcastToCamera sends a message to all clients subscribed to a camera.
func (h *Hub) BroadcastToCamera(cameraID string, message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[cameraID]))
	for c := range h.clients[cameraID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.WithError(err).Warn("ws: broadcast write failed, dropping client")
			h.Unregister(cameraID, conn)
			conn.Close()
		}
	}
}

// BroadcastEvent sends a tracking event to its camera's subscribers.
func (h *Hub) BroadcastEvent(ev eventbus.Event) {
	if !h.HasClients(ev.CameraID) {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Warn("ws: marshal event failed")
		return
	}
	h.BroadcastToCamera(ev.CameraID, data)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// Run subscribes to bus and broadcasts every event to its camera's
// connected clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context, bus *eventbus.Bus) {
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.BroadcastEvent(ev)
		}
	}
}

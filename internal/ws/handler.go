package ws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"flowguard/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to WebSocket connections registered
// against a Hub. Mounted at /ws/cameras/{camera_id}.
type Handler struct {
	hub *Hub
	log *logging.Logger
}

// NewHandler creates a new WebSocket handler bound to hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub, log: logging.New("ws.handler")}
}

// ServeHTTP upgrades the connection and registers it with the Hub under
// the URL's camera_id path parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")
	if cameraID == "" {
		http.Error(w, "camera_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws: upgrade failed")
		return
	}

	h.hub.Register(cameraID, conn)
	go h.readPump(cameraID, conn)
}

// readPump keeps the connection alive (ping/pong) and detects client
// disconnection; tracking events flow one-way (hub -> client), so incoming
// messages are read and discarded.
func (h *Handler) readPump(cameraID string, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(cameraID, conn)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

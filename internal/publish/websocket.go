package publish

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/groundwatch/sentinel/pkg/alert"
)

// WebSocketHub broadcasts alert and state records to every connected
// `/ws` client. Grounded on other_examples' SwarmC2 backend
// handleWebSocket/broadcastToClients shape: an Upgrader, a
// mutex-guarded connection set, and best-effort WriteJSON broadcasts
// that drop a client on write failure.
type WebSocketHub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

// NewWebSocketHub creates an empty hub. Origin checking is left to the
// caller's HTTP layer (spec.md names no auth requirement for /ws).
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and keeps
// it registered until the client disconnects or sends a close frame.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("publish: websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHub) broadcast(v interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("publish: websocket write failed: %v", err)
		}
	}
}

// PublishAlert broadcasts the alert envelope to every connected client.
func (h *WebSocketHub) PublishAlert(kind AlertKind, a alert.Alert) error {
	h.broadcast(alertEnvelope{Kind: kind, Alert: a})
	return nil
}

// PublishState broadcasts the cycle's state record to every connected client.
func (h *WebSocketHub) PublishState(s StateRecord) error {
	h.broadcast(s)
	return nil
}

// Close drops every connected client.
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

// Len reports the number of currently connected clients.
func (h *WebSocketHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

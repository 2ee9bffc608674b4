// Package ws pushes accepted webhook events to connected admin UI
// sessions so the event log updates without polling.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"webhook-digest-service/internal/logging"
)

const maxConnections = 10

// Hub broadcasts to every connected session. There is a single admin
// audience, so no per-user routing is needed.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger,
	}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= maxConnections {
		h.logger.Warnf("Max feed connections reached, rejecting new session")
		conn.Close()
		return
	}
	h.conns[conn] = true
	h.logger.Infof("Feed session connected (total: %d)", len(h.conns))
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		h.logger.Infof("Feed session disconnected (remaining: %d)", len(h.conns))
	}
}

// Broadcast sends v as JSON to every session, dropping sessions whose
// write fails.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Errorf("Feed write failed, dropping session: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

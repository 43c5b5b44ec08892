// Live chronicle stream over websocket. The hub fans appended events
// out to every connected observer; slow or broken connections are
// dropped rather than allowed to stall the simulation.
package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/castaway/internal/chronicle"
)

const (
	maxStreamConns = 16
	writeWait      = 5 * time.Second
)

// Hub tracks websocket observers of the chronicle.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

// Broadcast sends one event to every connected observer. Safe to call
// from the simulation goroutine; failed writes evict the connection.
func (h *Hub) Broadcast(ev chronicle.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			slog.Debug("stream observer dropped", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// handleStream upgrades the request and registers the observer.
func (h *Hub) handleStream(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	full := len(h.conns) >= maxStreamConns
	h.mu.Unlock()
	if full {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	slog.Info("stream observer connected", "remote", conn.RemoteAddr())

	// Reads are discarded; the loop exists to notice closes.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Close shuts every connection down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/pkg/logger"
)

// EventHub broadcasts pipeline events to connected WebSocket clients.
// It implements the pipeline's event sink, so every contract refresh and
// batch completion reaches subscribers as it happens.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewEventHub creates an event hub
func NewEventHub(log *logger.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboard clients connect cross-origin in development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.WithField("module", "events"),
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades the request and registers the client
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Info("Event subscriber connected")

	// Drain reads so close frames are processed; subscribers never send data
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish sends the event to every connected client. Slow or dead clients
// are dropped rather than blocking the pipeline.
func (h *EventHub) Publish(event contracts.PipelineEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			h.remove(conn)
		}
	}
}

// ClientCount returns the number of connected subscribers
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

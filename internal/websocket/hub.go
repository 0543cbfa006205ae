package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"threadview/internal/store"
)

// ChangeNotice tells viewers which posts to re-render after an action.
type ChangeNotice struct {
	Type string `json:"type"`
	store.ChangeSet
}

// Hub maintains the set of connected viewers and broadcasts to them.
type Hub struct {
	// Registered clients, keyed by viewer id.
	Clients map[uuid.UUID]*Client

	// Outbound frames for every viewer.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Called from client read pumps with each inbound frame.
	inbound func(c *Client, payload []byte)

	logger *slog.Logger

	// Closed when Run returns.
	done chan struct{}

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[uuid.UUID]*Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.Clients {
				close(client.Send)
				delete(h.Clients, id)
			}
			h.mu.Unlock()
			close(h.done)
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client.ViewerID] = client
			h.logger.Info("viewer connected",
				"viewer_id", client.ViewerID,
				"user_id", client.UserID,
				"viewers", len(h.Clients))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if registered, ok := h.Clients[client.ViewerID]; ok && registered == client {
				delete(h.Clients, client.ViewerID)
				close(client.Send)
				h.logger.Info("viewer disconnected", "viewer_id", client.ViewerID, "viewers", len(h.Clients))
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.RLock()
			for _, client := range h.Clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("broadcast send buffer full, frame dropped", "viewer_id", client.ViewerID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Join registers a client. It reports false once the hub has stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// NumViewers returns the number of connected viewers.
func (h *Hub) NumViewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// BroadcastChange queues a change notice for every viewer. It never blocks,
// so it is safe to call from a store change listener.
func (h *Hub) BroadcastChange(cs store.ChangeSet) {
	h.broadcastJSON(ChangeNotice{Type: "change", ChangeSet: cs})
}

func (h *Hub) broadcastJSON(frame interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to encode websocket frame", "error", err)
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
		h.logger.Warn("hub broadcast queue full, frame dropped")
	}
}

func (h *Hub) handleInbound(c *Client, payload []byte) {
	if h.inbound == nil {
		h.logger.Debug("inbound frame ignored", "viewer_id", c.ViewerID)
		return
	}
	h.inbound(c, payload)
}

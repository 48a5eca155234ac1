package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event is one scan occurrence pushed to connected dashboard clients.
type Event struct {
	Type      string    `json:"type"`
	Subreddit string    `json:"subreddit,omitempty"`
	Username  string    `json:"username,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Hub maintains active dashboard connections and broadcasts scan events to
// all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[Client]struct{})}
}

// Register adds a client.
func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// Publish serializes the event and sends it to every connected client.
// Delivery is best-effort; a failed write is left for the client's handler
// to clean up.
func (h *Hub) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		// A failed Send is the handler's signal to unregister on its side.
		c.Send(payload)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

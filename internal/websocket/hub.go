package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is a real-time inbox sync event pushed to a user's open clients.
type Message struct {
	Type           string `json:"type"`
	Action         string `json:"action"`
	NotificationID string `json:"notification_id,omitempty"`
	PendingCount   int    `json:"pending_count"`
	UnreadCount    int    `json:"unread_count"`
}

// NewMessage creates a Message with the Type field derived from the action.
func NewMessage(action, notificationID string, pending, unread int) Message {
	return Message{
		Type:           "notifications_" + action,
		Action:         action,
		NotificationID: notificationID,
		PendingCount:   pending,
		UnreadCount:    unread,
	}
}

// Hub maintains the set of active WebSocket clients keyed by user and
// delivers messages to every client a user has open.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client under its user ID.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client the given user has connected.
// Other users never see it.
func (h *Hub) Broadcast(userID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the sender
		}
	}
}

// ClientCount returns the number of connected clients for a user.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

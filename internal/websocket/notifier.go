package websocket

import (
	"log/slog"

	"github.com/calebmorris/wellbeat/internal/store"
)

// Notifier translates inbox changes into per-user broadcasts carrying the
// current badge counts, so clients never have to re-fetch the list just to
// update a badge.
type Notifier struct {
	hub           *Hub
	notifications *store.NotificationStore
	logger        *slog.Logger
}

// NewNotifier creates a Notifier publishing through hub.
func NewNotifier(hub *Hub, notifications *store.NotificationStore, logger *slog.Logger) *Notifier {
	return &Notifier{hub: hub, notifications: notifications, logger: logger}
}

// NotificationsChanged broadcasts an inbox change to the affected user's
// connected clients.
func (n *Notifier) NotificationsChanged(userID, action, id string) {
	pending, err := n.notifications.PendingCount(userID)
	if err != nil {
		n.logger.Error("pending count", "user_id", userID, "error", err)
		return
	}
	unread, err := n.notifications.UnreadCount(userID)
	if err != nil {
		n.logger.Error("unread count", "user_id", userID, "error", err)
		return
	}
	n.hub.Broadcast(userID, NewMessage(action, id, pending, unread))
}

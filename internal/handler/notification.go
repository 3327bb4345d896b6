package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/reminder"
	"github.com/calebmorris/wellbeat/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	manager       *reminder.Manager
	logger        *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, m *reminder.Manager, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: ns, manager: m, logger: logger}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	recs, err := h.notifications.List(userID)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if recs == nil {
		recs = []model.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Counts handles GET /api/notifications/unread-count
func (h *NotificationHandler) Counts(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	unread, err := h.notifications.UnreadCount(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	pending, err := h.notifications.PendingCount(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": unread, "pending": pending})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	rec, err := h.notifications.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return
	}
	if rec == nil || rec.UserID != userID {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	if err := h.notifications.MarkRead(id); err != nil {
		h.logger.Error("mark read", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dismissedRequest struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id"`
}

// Dismissed handles POST /api/notifications/dismissed, the inbound signal
// that the OS reported a push notification swiped away.
func (h *NotificationHandler) Dismissed(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req dismissedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	qt, err := model.ParseQuestionnaireType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.manager.OnDismissed(userID, qt, req.NotificationID)
	if err != nil {
		h.logger.Error("dismissal sync", "user_id", userID, "type", qt, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sync dismissal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_read": n})
}

// ReadByType handles POST /api/notifications/read-by-type
func (h *NotificationHandler) ReadByType(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	qt, err := model.ParseQuestionnaireType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.notifications.MarkReadByType(userID, qt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_read": n})
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	rec, err := h.notifications.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return
	}
	if rec == nil || rec.UserID != userID {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	if err := h.notifications.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup handles POST /api/notifications/cleanup
func (h *NotificationHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	n, err := h.notifications.CleanupOlderThan(userID, req.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// ClearRead handles POST /api/notifications/clear-read
func (h *NotificationHandler) ClearRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.ClearRead(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// ClearAll handles DELETE /api/notifications
func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	if err := h.notifications.ClearAll(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear notifications")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

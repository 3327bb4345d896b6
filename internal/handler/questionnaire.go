package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/calebmorris/wellbeat/internal/reminder"
	"github.com/calebmorris/wellbeat/internal/store"
)

type QuestionnaireHandler struct {
	manager     *reminder.Manager
	completions *store.CompletionStore
	logger      *slog.Logger
}

func NewQuestionnaireHandler(m *reminder.Manager, cs *store.CompletionStore, logger *slog.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{manager: m, completions: cs, logger: logger}
}

// Complete handles POST /api/questionnaires/{type}/complete
func (h *QuestionnaireHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	qt, ok := typeParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Answers map[string]any `json:"answers"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	if err := h.manager.MarkCompleted(r.Context(), userID, qt, req.Answers); err != nil {
		h.logger.Error("mark completed", "user_id", userID, "type", qt, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record completion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles POST /api/reconcile
func (h *QuestionnaireHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	created, err := h.manager.Reconcile(userID)
	if err != nil {
		h.logger.Error("reconcile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "reconcile failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

// Restart handles POST /api/restart, the app-launch recovery signal.
func (h *QuestionnaireHandler) Restart(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	h.manager.OnRestart(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// BaselineCheck handles GET /api/questionnaires/baseline/check
func (h *QuestionnaireHandler) BaselineCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	needed, err := h.manager.NeedsBaseline(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "baseline check failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"needed": needed})
}

// Stats handles GET /api/questionnaires/{type}/stats
func (h *QuestionnaireHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	qt, ok := typeParam(w, r)
	if !ok {
		return
	}

	stats, err := h.completions.Stats(userID, qt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

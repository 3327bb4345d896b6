package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/reminder"
	"github.com/calebmorris/wellbeat/internal/store"
)

type ConfigHandler struct {
	configs *store.ConfigStore
	manager *reminder.Manager
	logger  *slog.Logger
}

func NewConfigHandler(cs *store.ConfigStore, m *reminder.Manager, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{configs: cs, manager: m, logger: logger}
}

// Get handles GET /api/config
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(userID)
	if err != nil {
		h.logger.Error("get config", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Update handles PUT /api/config. Omitted fields are left unchanged.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		PeriodDays      *int           `json:"period_days"`
		TypePeriods     map[string]int `json:"type_periods"`
		PreferredHour   *int           `json:"preferred_hour"`
		PreferredMinute *int           `json:"preferred_minute"`
		ShowInApp       *bool          `json:"show_reminders_in_app"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	delta := store.ConfigDelta{
		PeriodDays:      req.PeriodDays,
		PreferredHour:   req.PreferredHour,
		PreferredMinute: req.PreferredMinute,
		ShowInApp:       req.ShowInApp,
	}
	if len(req.TypePeriods) > 0 {
		delta.TypePeriods = make(map[model.QuestionnaireType]int, len(req.TypePeriods))
		for name, days := range req.TypePeriods {
			qt, err := model.ParseQuestionnaireType(name)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			delta.TypePeriods[qt] = days
		}
	}

	cfg, err := h.manager.UpdateConfig(userID, delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdatePeriod handles PUT /api/config/period
func (h *ConfigHandler) UpdatePeriod(w http.ResponseWriter, r *http.Request) {
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

	cfg, err := h.manager.UpdatePeriod(userID, req.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateTypePeriod handles PUT /api/config/type-period
func (h *ConfigHandler) UpdateTypePeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Type string `json:"type"`
		Days int    `json:"days"`
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

	cfg, err := h.manager.UpdateTypePeriod(userID, qt, req.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdatePreferredTime handles PUT /api/config/preferred-time
func (h *ConfigHandler) UpdatePreferredTime(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	cfg, err := h.manager.UpdatePreferredTime(userID, req.Hour, req.Minute)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateShowInApp handles PUT /api/config/show-in-app
func (h *ConfigHandler) UpdateShowInApp(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Show bool `json:"show"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	cfg, err := h.configs.SetShowRemindersInApp(userID, req.Show)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

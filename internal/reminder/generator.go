package reminder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/schedule"
	"github.com/calebmorris/wellbeat/internal/store"
)

// ConfigSource is the read side of the schedule config store.
type ConfigSource interface {
	Get(userID string) (*model.ScheduleConfig, error)
}

// Generator is the reconciliation pass: it compares config and completion
// history against existing inbox records and materializes whatever pending
// records are missing. It is the only writer of new pending records, and is
// safe to run concurrently from completion handling, the periodic check, and
// boot recovery: the store's existence check is the correctness mechanism,
// not execution order.
type Generator struct {
	configs       ConfigSource
	notifications *store.NotificationStore
	logger        *slog.Logger

	now       func() time.Time
	onCreated func(rec *model.NotificationRecord)
}

func NewGenerator(configs ConfigSource, notifications *store.NotificationStore, logger *slog.Logger) *Generator {
	return &Generator{
		configs:       configs,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// SetOnCreated registers a hook invoked for each record the pass creates.
func (g *Generator) SetOnCreated(fn func(rec *model.NotificationRecord)) {
	g.onCreated = fn
}

// Reconcile sweeps the canonical registry for userID and creates any inbox
// record that should exist but does not. Returns how many were created.
// ShowRemindersInApp gates only the inbox records created alongside push
// delivery; the reconcile pass materializes due records regardless, so the
// inbox stays the source of truth for what is pending.
func (g *Generator) Reconcile(userID string) (int, error) {
	cfg, err := g.configs.Get(userID)
	if err != nil {
		return 0, fmt.Errorf("load config for reconcile: %w", err)
	}
	now := g.now()

	created := 0
	for _, qt := range model.Registry {
		// The baseline questionnaire is surfaced as a mandatory dialog,
		// never as an inbox entry.
		if qt.AlternateChannel() {
			continue
		}
		if !cfg.Enabled(qt) {
			continue
		}

		exists, err := g.notifications.HasPending(userID, qt)
		if err != nil {
			return created, fmt.Errorf("pending check for %q: %w", qt, err)
		}
		if exists {
			continue
		}

		last, completedBefore := cfg.LastCompleted[qt]
		due := now
		if completedBefore {
			due, err = schedule.NextDue(last, cfg.EffectivePeriod(qt), cfg.PreferredHour, cfg.PreferredMinute)
			if err != nil {
				g.logger.Error("skipping type with invalid schedule",
					"user_id", userID, "type", qt, "error", err)
				continue
			}
		}
		if due.After(now) {
			continue
		}

		title, message := model.ReminderContent(qt, !completedBefore)
		rec := model.NewNotificationRecord(userID, qt, title, message, due)
		inserted, err := g.notifications.CreatePendingIfAbsent(rec)
		if err != nil {
			return created, fmt.Errorf("create record for %q: %w", qt, err)
		}
		if !inserted {
			// A concurrent pass won the race; that is the guard working.
			continue
		}
		created++
		g.logger.Info("pending reminder materialized",
			"user_id", userID, "type", qt, "due_date", due, "first_time", !completedBefore)
		if g.onCreated != nil {
			g.onCreated(rec)
		}
	}
	return created, nil
}

package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/remote"
	"github.com/calebmorris/wellbeat/internal/schedule"
	"github.com/calebmorris/wellbeat/internal/store"
)

// Events receives inbox-change notifications so the presentation layer can
// refresh badges. A nil implementation is fine.
type Events interface {
	NotificationsChanged(userID, action, id string)
}

// Manager ties the stores, generator, and scheduler together and exposes
// the operations the presentation layer consumes. It also owns the periodic
// background reconciliation loop.
type Manager struct {
	configs       *store.ConfigStore
	notifications *store.NotificationStore
	completions   *store.CompletionStore
	generator     *Generator
	scheduler     *Scheduler
	records       remote.RecordStore
	events        Events
	logger        *slog.Logger

	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type ManagerConfig struct {
	ConfigStore       *store.ConfigStore
	NotificationStore *store.NotificationStore
	CompletionStore   *store.CompletionStore
	Generator         *Generator
	Scheduler         *Scheduler
	Records           remote.RecordStore // optional
	Events            Events             // optional
	Interval          time.Duration
	Logger            *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	m := &Manager{
		configs:       cfg.ConfigStore,
		notifications: cfg.NotificationStore,
		completions:   cfg.CompletionStore,
		generator:     cfg.Generator,
		scheduler:     cfg.Scheduler,
		records:       cfg.Records,
		events:        cfg.Events,
		logger:        cfg.Logger,
		interval:      interval,
		now:           time.Now,
	}
	m.scheduler.SetOnDelivered(func(userID string, qt model.QuestionnaireType) {
		// A delivered push must end up with an inbox record even if the
		// periodic pass has not caught this type yet.
		if _, err := m.generator.Reconcile(userID); err != nil {
			m.logger.Error("post-delivery reconcile", "user_id", userID, "error", err)
		}
	})
	m.generator.SetOnCreated(func(rec *model.NotificationRecord) {
		m.notifyChanged(rec.UserID, "created", rec.ID)
	})
	return m
}

// Start arms the periodic background reconciliation. Calling Start while the
// loop is already running is a no-op, which makes boot-recovery re-arming
// safe.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

// Stop halts the periodic loop and cancels every armed reminder.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	m.scheduler.CancelAll()
}

func (m *Manager) tick() {
	userIDs, err := m.configs.ListUserIDs()
	if err != nil {
		m.logger.Error("periodic check: list users", "error", err)
		return
	}
	for _, userID := range userIDs {
		if _, err := m.generator.Reconcile(userID); err != nil {
			m.logger.Error("periodic reconcile", "user_id", userID, "error", err)
		}
	}
}

// Reconcile runs a generator pass for one user.
func (m *Manager) Reconcile(userID string) (int, error) {
	return m.generator.Reconcile(userID)
}

// OnRestart re-enters the reconciliation path after a process or device
// restart. Without an authenticated user it does nothing.
func (m *Manager) OnRestart(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if _, err := m.generator.Reconcile(userID); err != nil {
		m.logger.Error("boot recovery reconcile", "user_id", userID, "error", err)
	}
	m.Start(ctx)
}

// MarkCompleted handles a questionnaire completion: stamps the history,
// removes the pending inbox record, records the completion event, arms the
// next reminders, uploads the submission, and reconciles.
func (m *Manager) MarkCompleted(ctx context.Context, userID string, qt model.QuestionnaireType, answers map[string]any) error {
	if !model.KnownType(qt) {
		return fmt.Errorf("unknown questionnaire type %q", qt)
	}
	now := m.now()

	cfg, err := m.configs.RecordCompletion(userID, qt, now)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	period := cfg.EffectivePeriod(qt)

	removed, err := m.notifications.DeletePending(userID, qt)
	if err != nil {
		return fmt.Errorf("remove pending record: %w", err)
	}
	if removed != nil {
		m.notifyChanged(userID, "completed", removed.ID)
	}

	ev := &model.CompletionEvent{
		UserID:            userID,
		QuestionnaireType: qt,
		CompletedAt:       now,
		PeriodDays:        period,
	}
	if removed != nil {
		due := removed.DueDate
		ev.PreviousDue = &due
	}
	if err := m.completions.Record(ev); err != nil {
		// Stats are best-effort; scheduling must still proceed.
		m.logger.Error("record completion event", "user_id", userID, "type", qt, "error", err)
	}

	m.armNext(userID, qt, cfg, now)

	if m.records != nil {
		go func() {
			ctx, cancelFn := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancelFn()
			if err := remote.RecordCompletion(ctx, m.records, userID, qt, now, answers); err != nil {
				m.logger.Error("upload submission", "user_id", userID, "type", qt, "error", err)
			}
		}()
	}

	// Some other type may have fallen due in the meantime.
	if _, err := m.generator.Reconcile(userID); err != nil {
		m.logger.Error("post-completion reconcile", "user_id", userID, "error", err)
	}
	return nil
}

// armNext schedules the main and pre-due reminders following a completion
// at instant now.
func (m *Manager) armNext(userID string, qt model.QuestionnaireType, cfg *model.ScheduleConfig, now time.Time) {
	period := cfg.EffectivePeriod(qt)
	dueAt, err := schedule.NextDue(now, period, cfg.PreferredHour, cfg.PreferredMinute)
	if err != nil {
		m.logger.Error("compute next due", "user_id", userID, "type", qt, "error", err)
		return
	}

	title, message := model.ReminderContent(qt, false)
	createInApp := !qt.AlternateChannel() && cfg.ShowRemindersInApp
	m.scheduler.Schedule(userID, qt, dueAt, title, message, KindMain, createInApp)

	if period > 1 {
		preTitle := title
		preMessage := fmt.Sprintf("Your %s questionnaire is due tomorrow.", qt.DisplayName())
		m.scheduler.Schedule(userID, qt, dueAt.AddDate(0, 0, -1), preTitle, preMessage, KindPreDue, false)
	}
}

// OnDismissed folds an OS "push dismissed" signal back into the inbox:
// every non-completed unread record of the type becomes read. Dismissal is
// not completion, so the pending badge count is untouched.
func (m *Manager) OnDismissed(userID string, qt model.QuestionnaireType, notificationID string) (int, error) {
	if !model.KnownType(qt) {
		return 0, fmt.Errorf("unknown questionnaire type %q", qt)
	}
	n, err := m.notifications.MarkReadByType(userID, qt)
	if err != nil {
		return 0, fmt.Errorf("sync dismissal: %w", err)
	}
	if n > 0 {
		m.notifyChanged(userID, "read", notificationID)
	}
	return n, nil
}

// UpdateConfig applies a partial config update in one write and reschedules
// every affected reminder once.
func (m *Manager) UpdateConfig(userID string, delta store.ConfigDelta) (*model.ScheduleConfig, error) {
	cfg, err := m.configs.ApplyDelta(userID, delta)
	if err != nil {
		return nil, err
	}
	m.reschedule(userID, cfg)
	return cfg, nil
}

// UpdatePeriod changes the global period and reschedules affected reminders.
func (m *Manager) UpdatePeriod(userID string, days int) (*model.ScheduleConfig, error) {
	cfg, err := m.configs.UpdatePeriod(userID, days)
	if err != nil {
		return nil, err
	}
	m.reschedule(userID, cfg)
	return cfg, nil
}

// UpdateTypePeriod changes one type's period override and reschedules.
func (m *Manager) UpdateTypePeriod(userID string, qt model.QuestionnaireType, days int) (*model.ScheduleConfig, error) {
	cfg, err := m.configs.UpdateTypePeriod(userID, qt, days)
	if err != nil {
		return nil, err
	}
	m.reschedule(userID, cfg)
	return cfg, nil
}

// UpdatePreferredTime changes the delivery time-of-day and reschedules.
func (m *Manager) UpdatePreferredTime(userID string, hour, minute int) (*model.ScheduleConfig, error) {
	cfg, err := m.configs.UpdatePreferredTime(userID, hour, minute)
	if err != nil {
		return nil, err
	}
	m.reschedule(userID, cfg)
	return cfg, nil
}

// reschedule cancels and re-arms every type's reminders from the latest
// config, then runs a generator pass for anything already due.
func (m *Manager) reschedule(userID string, cfg *model.ScheduleConfig) {
	now := m.now()
	for _, qt := range model.Registry {
		m.scheduler.Cancel(userID, qt)
		if !cfg.Enabled(qt) {
			continue
		}
		last, ok := cfg.LastCompleted[qt]
		if !ok {
			// Never completed: due immediately, the generator covers it.
			continue
		}
		dueAt, err := schedule.NextDue(last, cfg.EffectivePeriod(qt), cfg.PreferredHour, cfg.PreferredMinute)
		if err != nil {
			m.logger.Error("reschedule next due", "user_id", userID, "type", qt, "error", err)
			continue
		}
		if !dueAt.After(now) {
			continue
		}
		title, message := model.ReminderContent(qt, false)
		createInApp := !qt.AlternateChannel() && cfg.ShowRemindersInApp
		m.scheduler.Schedule(userID, qt, dueAt, title, message, KindMain, createInApp)
		if cfg.EffectivePeriod(qt) > 1 {
			preMessage := fmt.Sprintf("Your %s questionnaire is due tomorrow.", qt.DisplayName())
			m.scheduler.Schedule(userID, qt, dueAt.AddDate(0, 0, -1), title, preMessage, KindPreDue, false)
		}
	}
	if _, err := m.generator.Reconcile(userID); err != nil {
		m.logger.Error("post-update reconcile", "user_id", userID, "error", err)
	}
}

// NeedsBaseline reports whether the mandatory baseline dialog should be
// shown, consulting the remote record store. Without a remote store the
// answer is always false.
func (m *Manager) NeedsBaseline(ctx context.Context, userID string) (bool, error) {
	if m.records == nil {
		return false, nil
	}
	cfg, err := m.configs.Get(userID)
	if err != nil {
		return false, err
	}
	return remote.NeedsBaseline(ctx, m.records, userID, cfg, m.now(), m.logger), nil
}

func (m *Manager) notifyChanged(userID, action, id string) {
	if m.events != nil {
		m.events.NotificationsChanged(userID, action, id)
	}
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/schedule"
)

// ConfigStore owns one ScheduleConfig per user. All mutations are serialized
// through a single store-scoped mutex so a user edit and a background
// reconciliation never interleave a partial update.
type ConfigStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *slog.Logger
}

func NewConfigStore(db *sql.DB, logger *slog.Logger) *ConfigStore {
	return &ConfigStore{db: db, logger: logger}
}

// Get loads the user's config, creating a default one on first access.
// If the stored enabled set is missing types the running registry knows,
// the union is persisted before returning; a second call is a no-op.
func (s *ConfigStore) Get(userID string) (*model.ScheduleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(userID)
}

func (s *ConfigStore) getLocked(userID string) (*model.ScheduleConfig, error) {
	cfg, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = model.DefaultScheduleConfig(userID)
		if err := s.saveLocked(cfg); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		return cfg, nil
	}
	if cfg.MergeRegistry() {
		s.logger.Info("migrating schedule config to current registry", "user_id", userID)
		if err := s.saveLocked(cfg); err != nil {
			return nil, fmt.Errorf("persist migrated config: %w", err)
		}
	}
	return cfg, nil
}

func (s *ConfigStore) load(userID string) (*model.ScheduleConfig, error) {
	var (
		cfg           model.ScheduleConfig
		typePeriods   string
		enabledTypes  string
		lastCompleted string
		showInApp     int
	)
	err := s.db.QueryRow(
		`SELECT user_id, period_days, baseline_period_days, type_periods,
		        preferred_hour, preferred_minute, enabled_types, last_completed,
		        show_in_app, created_at, updated_at
		 FROM schedule_configs WHERE user_id = ?`, userID,
	).Scan(&cfg.UserID, &cfg.PeriodDays, &cfg.BaselinePeriodDays, &typePeriods,
		&cfg.PreferredHour, &cfg.PreferredMinute, &enabledTypes, &lastCompleted,
		&showInApp, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule config: %w", err)
	}
	cfg.ShowRemindersInApp = showInApp != 0

	// A corrupt column falls back to its default; scheduling must always
	// have a safe state to work from.
	if err := json.Unmarshal([]byte(typePeriods), &cfg.TypePeriods); err != nil {
		s.logger.Warn("unreadable type periods, using defaults", "user_id", userID, "error", err)
		cfg.TypePeriods = make(map[model.QuestionnaireType]int)
	}
	if err := json.Unmarshal([]byte(enabledTypes), &cfg.EnabledTypes); err != nil {
		s.logger.Warn("unreadable enabled types, using registry", "user_id", userID, "error", err)
		cfg.EnabledTypes = nil
	}
	if err := json.Unmarshal([]byte(lastCompleted), &cfg.LastCompleted); err != nil {
		s.logger.Warn("unreadable completion history, clearing", "user_id", userID, "error", err)
		cfg.LastCompleted = make(map[model.QuestionnaireType]time.Time)
	}
	return &cfg, nil
}

// Save persists the config verbatim.
func (s *ConfigStore) Save(cfg *model.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cfg)
}

func (s *ConfigStore) saveLocked(cfg *model.ScheduleConfig) error {
	typePeriods, err := json.Marshal(cfg.TypePeriods)
	if err != nil {
		return fmt.Errorf("marshal type periods: %w", err)
	}
	enabledTypes, err := json.Marshal(cfg.EnabledTypes)
	if err != nil {
		return fmt.Errorf("marshal enabled types: %w", err)
	}
	lastCompleted, err := json.Marshal(cfg.LastCompleted)
	if err != nil {
		return fmt.Errorf("marshal completion history: %w", err)
	}
	showInApp := 0
	if cfg.ShowRemindersInApp {
		showInApp = 1
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO schedule_configs
		   (user_id, period_days, baseline_period_days, type_periods,
		    preferred_hour, preferred_minute, enabled_types, last_completed,
		    show_in_app, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   period_days = excluded.period_days,
		   baseline_period_days = excluded.baseline_period_days,
		   type_periods = excluded.type_periods,
		   preferred_hour = excluded.preferred_hour,
		   preferred_minute = excluded.preferred_minute,
		   enabled_types = excluded.enabled_types,
		   last_completed = excluded.last_completed,
		   show_in_app = excluded.show_in_app,
		   updated_at = excluded.updated_at`,
		cfg.UserID, cfg.PeriodDays, cfg.BaselinePeriodDays, string(typePeriods),
		cfg.PreferredHour, cfg.PreferredMinute, string(enabledTypes), string(lastCompleted),
		showInApp, now, now,
	)
	if err != nil {
		return fmt.Errorf("save schedule config: %w", err)
	}
	return nil
}

// UpdatePeriod sets the global recurrence period.
func (s *ConfigStore) UpdatePeriod(userID string, days int) (*model.ScheduleConfig, error) {
	if days <= 0 {
		return nil, schedule.ErrInvalidPeriod
	}
	return s.mutate(userID, func(cfg *model.ScheduleConfig) {
		cfg.PeriodDays = days
	})
}

// UpdateTypePeriod sets a per-type override.
func (s *ConfigStore) UpdateTypePeriod(userID string, qt model.QuestionnaireType, days int) (*model.ScheduleConfig, error) {
	if days <= 0 {
		return nil, schedule.ErrInvalidPeriod
	}
	if !model.KnownType(qt) {
		return nil, fmt.Errorf("unknown questionnaire type %q", qt)
	}
	return s.mutate(userID, func(cfg *model.ScheduleConfig) {
		if qt == model.QuestionnaireBaseline {
			cfg.BaselinePeriodDays = days
			return
		}
		cfg.TypePeriods[qt] = days
	})
}

// UpdatePreferredTime sets the delivery time-of-day.
func (s *ConfigStore) UpdatePreferredTime(userID string, hour, minute int) (*model.ScheduleConfig, error) {
	if err := schedule.ValidateTime(hour, minute); err != nil {
		return nil, err
	}
	return s.mutate(userID, func(cfg *model.ScheduleConfig) {
		cfg.PreferredHour = hour
		cfg.PreferredMinute = minute
	})
}

// ConfigDelta is a partial schedule-config update. Nil fields are left
// unchanged; TypePeriods entries overwrite only the named types.
type ConfigDelta struct {
	PeriodDays      *int
	TypePeriods     map[model.QuestionnaireType]int
	PreferredHour   *int
	PreferredMinute *int
	ShowInApp       *bool
}

// ApplyDelta validates and applies every field of the delta in one write.
func (s *ConfigStore) ApplyDelta(userID string, d ConfigDelta) (*model.ScheduleConfig, error) {
	if d.PeriodDays != nil && *d.PeriodDays <= 0 {
		return nil, schedule.ErrInvalidPeriod
	}
	for qt, days := range d.TypePeriods {
		if days <= 0 {
			return nil, schedule.ErrInvalidPeriod
		}
		if !model.KnownType(qt) {
			return nil, fmt.Errorf("unknown questionnaire type %q", qt)
		}
	}
	if d.PreferredHour != nil && (*d.PreferredHour < 0 || *d.PreferredHour > 23) {
		return nil, schedule.ErrInvalidHour
	}
	if d.PreferredMinute != nil && (*d.PreferredMinute < 0 || *d.PreferredMinute > 59) {
		return nil, schedule.ErrInvalidMinute
	}

	return s.mutate(userID, func(cfg *model.ScheduleConfig) {
		if d.PeriodDays != nil {
			cfg.PeriodDays = *d.PeriodDays
		}
		for qt, days := range d.TypePeriods {
			if qt == model.QuestionnaireBaseline {
				cfg.BaselinePeriodDays = days
				continue
			}
			cfg.TypePeriods[qt] = days
		}
		if d.PreferredHour != nil {
			cfg.PreferredHour = *d.PreferredHour
		}
		if d.PreferredMinute != nil {
			cfg.PreferredMinute = *d.PreferredMinute
		}
		if d.ShowInApp != nil {
			cfg.ShowRemindersInApp = *d.ShowInApp
		}
	})
}

// SetShowRemindersInApp toggles in-app materialization of reminders.
func (s *ConfigStore) SetShowRemindersInApp(userID string, show bool) (*model.ScheduleConfig, error) {
	return s.mutate(userID, func(cfg *model.ScheduleConfig) {
		cfg.ShowRemindersInApp = show
	})
}

// RecordCompletion stamps qt's completion time in the config history.
func (s *ConfigStore) RecordCompletion(userID string, qt model.QuestionnaireType, at time.Time) (*model.ScheduleConfig, error) {
	if !model.KnownType(qt) {
		return nil, fmt.Errorf("unknown questionnaire type %q", qt)
	}
	return s.mutate(userID, func(cfg *model.ScheduleConfig) {
		cfg.LastCompleted[qt] = at.UTC()
	})
}

// ListUserIDs returns every user with a stored config.
func (s *ConfigStore) ListUserIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT user_id FROM schedule_configs ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list config user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ConfigStore) mutate(userID string, fn func(*model.ScheduleConfig)) (*model.ScheduleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.getLocked(userID)
	if err != nil {
		return nil, err
	}
	fn(cfg)
	if err := s.saveLocked(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

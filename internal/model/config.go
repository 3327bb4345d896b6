package model

import "time"

// Default schedule values applied when a user has no stored config.
const (
	DefaultPeriodDays         = 30
	DefaultBaselinePeriodDays = 90
	DefaultPreferredHour      = 9
	DefaultPreferredMinute    = 0
)

// ScheduleConfig holds one user's reminder schedule: which questionnaires are
// enabled, how often each recurs, and when during the day reminders land.
type ScheduleConfig struct {
	UserID             string                          `json:"user_id"`
	PeriodDays         int                             `json:"period_days"`
	BaselinePeriodDays int                             `json:"baseline_period_days"`
	TypePeriods        map[QuestionnaireType]int       `json:"type_periods"`
	PreferredHour      int                             `json:"preferred_hour"`
	PreferredMinute    int                             `json:"preferred_minute"`
	EnabledTypes       []QuestionnaireType             `json:"enabled_types"`
	LastCompleted      map[QuestionnaireType]time.Time `json:"last_completed"`
	ShowRemindersInApp bool                            `json:"show_reminders_in_app"`
	CreatedAt          time.Time                       `json:"created_at"`
	UpdatedAt          time.Time                       `json:"updated_at"`
}

// DefaultScheduleConfig returns the config a user starts with: every
// registered type enabled at the global period, reminders at 09:00.
func DefaultScheduleConfig(userID string) *ScheduleConfig {
	enabled := make([]QuestionnaireType, len(Registry))
	copy(enabled, Registry)
	return &ScheduleConfig{
		UserID:             userID,
		PeriodDays:         DefaultPeriodDays,
		BaselinePeriodDays: DefaultBaselinePeriodDays,
		TypePeriods:        make(map[QuestionnaireType]int),
		PreferredHour:      DefaultPreferredHour,
		PreferredMinute:    DefaultPreferredMinute,
		EnabledTypes:       enabled,
		LastCompleted:      make(map[QuestionnaireType]time.Time),
		ShowRemindersInApp: true,
	}
}

// Enabled reports whether qt is in the enabled set.
func (c *ScheduleConfig) Enabled(qt QuestionnaireType) bool {
	for _, t := range c.EnabledTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// EffectivePeriod resolves the recurrence period for qt: per-type override
// first, the baseline override for the baseline type, else the global period.
func (c *ScheduleConfig) EffectivePeriod(qt QuestionnaireType) int {
	if days, ok := c.TypePeriods[qt]; ok && days > 0 {
		return days
	}
	if qt == QuestionnaireBaseline && c.BaselinePeriodDays > 0 {
		return c.BaselinePeriodDays
	}
	return c.PeriodDays
}

// MergeRegistry unions the canonical registry into EnabledTypes, preserving
// order and dropping duplicates. Returns true if anything was added.
func (c *ScheduleConfig) MergeRegistry() bool {
	seen := make(map[QuestionnaireType]struct{}, len(c.EnabledTypes))
	for _, t := range c.EnabledTypes {
		seen[t] = struct{}{}
	}
	added := false
	for _, qt := range Registry {
		if _, ok := seen[qt]; !ok {
			c.EnabledTypes = append(c.EnabledTypes, qt)
			seen[qt] = struct{}{}
			added = true
		}
	}
	return added
}

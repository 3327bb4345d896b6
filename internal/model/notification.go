package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationRecord is one entry in a user's in-app inbox. At most one
// non-completed record exists per (user, questionnaire type); the generator's
// existence check enforces it.
type NotificationRecord struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	QuestionnaireType QuestionnaireType `json:"questionnaire_type"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	DueDate           time.Time         `json:"due_date"`
	CreatedAt         time.Time         `json:"created_at"`
	IsRead            bool              `json:"is_read"`
	IsCompleted       bool              `json:"is_completed"`
}

// NewNotificationRecord builds an unread, pending record with a fresh ID.
func NewNotificationRecord(userID string, qt QuestionnaireType, title, message string, dueDate time.Time) *NotificationRecord {
	return &NotificationRecord{
		ID:                uuid.NewString(),
		UserID:            userID,
		QuestionnaireType: qt,
		Title:             title,
		Message:           message,
		DueDate:           dueDate,
		CreatedAt:         time.Now().UTC(),
	}
}

// CompletionEvent records a single questionnaire completion. It feeds the
// adherence stats and next-due computation, but is never inbox state.
type CompletionEvent struct {
	ID                int64             `json:"id"`
	UserID            string            `json:"user_id"`
	QuestionnaireType QuestionnaireType `json:"questionnaire_type"`
	CompletedAt       time.Time         `json:"completed_at"`
	PreviousDue       *time.Time        `json:"previous_due,omitempty"`
	PeriodDays        int               `json:"period_days"`
}

// CompletionStats summarizes a user's completion history for one type.
type CompletionStats struct {
	QuestionnaireType QuestionnaireType `json:"questionnaire_type"`
	Count             int               `json:"count"`
	LastCompletedAt   *time.Time        `json:"last_completed_at,omitempty"`
	LastPeriodDays    int               `json:"last_period_days"`
	AvgIntervalDays   float64           `json:"avg_interval_days"`
}

// PushSubscription is a browser push endpoint registered by one of the
// user's devices.
type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

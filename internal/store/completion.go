package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
)

// CompletionStore records questionnaire completion events for stats.
type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

// Record persists one completion event.
func (s *CompletionStore) Record(ev *model.CompletionEvent) error {
	var prevDue any
	if ev.PreviousDue != nil {
		prevDue = ev.PreviousDue.UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO completion_events
		   (user_id, questionnaire_type, completed_at, previous_due, period_days)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.UserID, string(ev.QuestionnaireType), ev.CompletedAt.UTC(), prevDue, ev.PeriodDays,
	)
	if err != nil {
		return fmt.Errorf("record completion event: %w", err)
	}
	ev.ID, _ = res.LastInsertId()
	return nil
}

// ListByType returns completion events for (user, type), oldest first.
func (s *CompletionStore) ListByType(userID string, qt model.QuestionnaireType) ([]model.CompletionEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, questionnaire_type, completed_at, previous_due, period_days
		 FROM completion_events
		 WHERE user_id = ? AND questionnaire_type = ?
		 ORDER BY completed_at`,
		userID, string(qt),
	)
	if err != nil {
		return nil, fmt.Errorf("list completion events: %w", err)
	}
	defer rows.Close()

	var events []model.CompletionEvent
	for rows.Next() {
		var (
			ev      model.CompletionEvent
			qtRaw   string
			prevDue sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &qtRaw, &ev.CompletedAt, &prevDue, &ev.PeriodDays); err != nil {
			return nil, fmt.Errorf("scan completion event: %w", err)
		}
		ev.QuestionnaireType = model.QuestionnaireType(qtRaw)
		if prevDue.Valid {
			t := prevDue.Time
			ev.PreviousDue = &t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Stats summarizes completion history for (user, type).
func (s *CompletionStore) Stats(userID string, qt model.QuestionnaireType) (*model.CompletionStats, error) {
	events, err := s.ListByType(userID, qt)
	if err != nil {
		return nil, err
	}

	stats := &model.CompletionStats{QuestionnaireType: qt, Count: len(events)}
	if len(events) == 0 {
		return stats, nil
	}

	last := events[len(events)-1]
	lastAt := last.CompletedAt
	stats.LastCompletedAt = &lastAt
	stats.LastPeriodDays = last.PeriodDays

	if len(events) > 1 {
		var total time.Duration
		for i := 1; i < len(events); i++ {
			total += events[i].CompletedAt.Sub(events[i-1].CompletedAt)
		}
		avg := total / time.Duration(len(events)-1)
		stats.AvgIntervalDays = avg.Hours() / 24
	}
	return stats, nil
}

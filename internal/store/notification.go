package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
)

// NotificationStore owns the durable in-app inbox. It is the source of truth
// for pending and unread counts; the schema's partial unique index backs the
// at-most-one-pending-per-type invariant even if callers race.
type NotificationStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, user_id, questionnaire_type, title, message, due_date, created_at, is_read, is_completed`

// CreatePendingIfAbsent inserts rec unless a non-completed record for the
// same (user, type) already exists. Returns whether a row was created.
// This is the generator's idempotence guard.
func (s *NotificationStore) CreatePendingIfAbsent(rec *model.NotificationRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO notifications
		   (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.UserID, string(rec.QuestionnaireType), rec.Title, rec.Message,
		rec.DueDate.UTC(), rec.CreatedAt.UTC(), boolToInt(rec.IsRead),
	)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create notification rows affected: %w", err)
	}
	return n > 0, nil
}

// Get returns the record by id, or nil if it does not exist.
func (s *NotificationStore) Get(id string) (*model.NotificationRecord, error) {
	row := s.db.QueryRow(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	rec, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return rec, nil
}

// GetPending returns the non-completed record for (user, type), or nil.
func (s *NotificationStore) GetPending(userID string, qt model.QuestionnaireType) (*model.NotificationRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? AND questionnaire_type = ? AND is_completed = 0`,
		userID, string(qt),
	)
	rec, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending notification: %w", err)
	}
	return rec, nil
}

// HasPending reports whether a non-completed record exists for (user, type).
func (s *NotificationStore) HasPending(userID string, qt model.QuestionnaireType) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = ? AND questionnaire_type = ? AND is_completed = 0`,
		userID, string(qt),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check pending notification: %w", err)
	}
	return count > 0, nil
}

// List returns the user's inbox, newest first.
func (s *NotificationStore) List(userID string) ([]model.NotificationRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// PendingCount counts non-completed records; this backs the inbox badge.
func (s *NotificationStore) PendingCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_completed = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending notifications: %w", err)
	}
	return count, nil
}

// UnreadCount counts non-completed unread records, used for visual emphasis.
func (s *NotificationStore) UnreadCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_completed = 0 AND is_read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one record as read.
func (s *NotificationStore) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkReadByType flags every non-completed unread record of qt as read.
// Completion state is untouched: a dismissed reminder is not a completed
// questionnaire. Returns the number of records updated.
func (s *NotificationStore) MarkReadByType(userID string, qt model.QuestionnaireType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE notifications SET is_read = 1
		 WHERE user_id = ? AND questionnaire_type = ? AND is_completed = 0 AND is_read = 0`,
		userID, string(qt),
	)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read by type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read rows affected: %w", err)
	}
	return int(n), nil
}

// DeletePending removes the non-completed record for (user, type). The
// completion path deletes rather than flags so the pending set shrinks
// immediately. Returns the removed record, or nil if none existed.
func (s *NotificationStore) DeletePending(userID string, qt model.QuestionnaireType) (*model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getPendingLocked(userID, qt)
	if err != nil || rec == nil {
		return nil, err
	}
	if _, err := s.db.Exec(`DELETE FROM notifications WHERE id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("delete pending notification: %w", err)
	}
	return rec, nil
}

func (s *NotificationStore) getPendingLocked(userID string, qt model.QuestionnaireType) (*model.NotificationRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? AND questionnaire_type = ? AND is_completed = 0`,
		userID, string(qt),
	)
	rec, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending notification: %w", err)
	}
	return rec, nil
}

// Delete removes one record by id.
func (s *NotificationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// CleanupOlderThan removes completed records created more than the given
// number of days ago. Pending records never age out.
func (s *NotificationStore) CleanupOlderThan(userID string, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("cleanup days must be positive, got %d", days)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.Exec(
		`DELETE FROM notifications WHERE user_id = ? AND is_completed = 1 AND created_at < ?`,
		userID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rows affected: %w", err)
	}
	return int(n), nil
}

// ClearRead removes every read record for the user.
func (s *NotificationStore) ClearRead(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM notifications WHERE user_id = ? AND is_read = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear read notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear read rows affected: %w", err)
	}
	return int(n), nil
}

// ClearAll empties the user's inbox.
func (s *NotificationStore) ClearAll(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM notifications WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*model.NotificationRecord, error) {
	var (
		rec       model.NotificationRecord
		qt        string
		read      int
		completed int
	)
	err := row.Scan(&rec.ID, &rec.UserID, &qt, &rec.Title, &rec.Message,
		&rec.DueDate, &rec.CreatedAt, &read, &completed)
	if err != nil {
		return nil, err
	}
	rec.QuestionnaireType = model.QuestionnaireType(qt)
	rec.IsRead = read != 0
	rec.IsCompleted = completed != 0
	return &rec, nil
}

func scanNotifications(rows *sql.Rows) ([]model.NotificationRecord, error) {
	var recs []model.NotificationRecord
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// BackupRecord tracks one database snapshot uploaded to object storage.
type BackupRecord struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	S3Key     string    `json:"s3_key"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"` // pending, complete, failed
	CreatedAt time.Time `json:"created_at"`
}

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Create(filename, s3Key string) (*BackupRecord, error) {
	res, err := s.db.Exec(
		`INSERT INTO backups (filename, s3_key) VALUES (?, ?)`,
		filename, s3Key,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.Get(id)
}

func (s *BackupStore) Get(id int64) (*BackupRecord, error) {
	var rec BackupRecord
	err := s.db.QueryRow(
		`SELECT id, filename, s3_key, size_bytes, status, created_at FROM backups WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Filename, &rec.S3Key, &rec.SizeBytes, &rec.Status, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup record: %w", err)
	}
	return &rec, nil
}

func (s *BackupStore) MarkComplete(id, sizeBytes int64) error {
	_, err := s.db.Exec(`UPDATE backups SET status = 'complete', size_bytes = ? WHERE id = ?`, sizeBytes, id)
	if err != nil {
		return fmt.Errorf("mark backup complete: %w", err)
	}
	return nil
}

func (s *BackupStore) MarkFailed(id int64) error {
	_, err := s.db.Exec(`UPDATE backups SET status = 'failed' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark backup failed: %w", err)
	}
	return nil
}

// ListComplete returns completed backups, newest first.
func (s *BackupStore) ListComplete() ([]BackupRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, filename, s3_key, size_bytes, status, created_at
		 FROM backups WHERE status = 'complete' ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var recs []BackupRecord
	for rows.Next() {
		var rec BackupRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.S3Key, &rec.SizeBytes, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *BackupStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete backup record: %w", err)
	}
	return nil
}

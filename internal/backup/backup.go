// Package backup takes periodic encrypted snapshots of the SQLite database
// and ships them to S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/calebmorris/wellbeat/internal/store"
)

// s3Client is the slice of the S3 API the manager uses, split out for tests.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
	Interval   time.Duration
	Retain     int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager runs the snapshot loop and answers status queries.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It stays disabled until the config
// carries a bucket, credentials, and a passphrase.
func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		backups: backups,
		logger:  logger,
		status:  Status{State: StateDisabled},
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the periodic snapshot loop. A disabled manager ignores it.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.done != nil {
		m.mu.Unlock()
		return
	}
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup", "error", err)
				}
				if err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the snapshot loop and waits for it to finish.
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
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
}

// RunNow snapshots the database, encrypts it, and uploads it. It returns
// the ID of the recorded backup.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return 0, fmt.Errorf("backup not configured")
	}

	m.setStatus(Status{State: StateRunning})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("wellbeat-%s.db.enc", timestamp)
	s3Key := "snapshots/" + filename

	record, err := m.backups.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	encrypted, err := m.snapshot(ctx, record.ID)
	if err != nil {
		m.backups.MarkFailed(record.ID)
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
	})
	if err != nil {
		m.backups.MarkFailed(record.ID)
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("upload to s3: %w", err)
	}

	if err := m.backups.MarkComplete(record.ID, int64(len(encrypted))); err != nil {
		m.logger.Error("mark backup complete", "backup_id", record.ID, "error", err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", s3Key, "bytes", len(encrypted))
	return record.ID, nil
}

// snapshot produces an encrypted copy of the live database. VACUUM INTO
// writes a consistent single-file image regardless of the WAL state.
func (m *Manager) snapshot(ctx context.Context, backupID int64) ([]byte, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("wellbeat-backup-%d.db", backupID))
	os.Remove(tmp) // VACUUM INTO refuses to overwrite
	defer os.Remove(tmp)

	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}

	plain, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	encrypted, err := Encrypt(plain, m.cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot: %w", err)
	}
	return encrypted, nil
}

// Download streams an encrypted backup from object storage.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, 0, fmt.Errorf("backup not configured")
	}

	record, err := m.backups.Get(backupID)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, 0, fmt.Errorf("backup not found")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record.SizeBytes, nil
}

// Restore downloads and decrypts a backup, validates it, and swaps it in
// place of the live database file. The process must be restarted afterwards
// to reopen the new file.
func (m *Manager) Restore(ctx context.Context, backupID int64) error {
	body, _, err := m.Download(ctx, backupID)
	if err != nil {
		return err
	}
	defer body.Close()

	encrypted, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plain, err := Decrypt(encrypted, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("wellbeat-restore-%d.db", backupID))
	defer os.Remove(tmp)
	if err := os.WriteFile(tmp, plain, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}

	tmpDB, err := sql.Open("sqlite", tmp)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	var integrity string
	err = tmpDB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity)
	tmpDB.Close()
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	if err := os.WriteFile(m.cfg.DBPath, plain, 0600); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")

	m.logger.Info("restore complete, restart required", "backup_id", backupID)
	return nil
}

// Cleanup prunes old snapshots, keeping the newest Retain complete backups.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retain := m.cfg.Retain
	m.mu.RUnlock()
	if client == nil || retain <= 0 {
		return nil
	}

	records, err := m.backups.ListComplete()
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	if len(records) <= retain {
		return nil
	}

	for _, rec := range records[retain:] {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(rec.S3Key),
		}); err != nil {
			m.logger.Error("delete s3 object", "key", rec.S3Key, "error", err)
			continue
		}
		if err := m.backups.Delete(rec.ID); err != nil {
			m.logger.Error("delete backup record", "backup_id", rec.ID, "error", err)
		}
	}
	return nil
}

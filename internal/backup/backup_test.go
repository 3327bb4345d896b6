package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/calebmorris/wellbeat/internal/database"
	"github.com/calebmorris/wellbeat/internal/store"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*input.Key] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	data := f.objects[*input.Key]
	f.mu.Unlock()
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, *input.Key)
	f.deletes = append(f.deletes, *input.Key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func setupBackupManager(t *testing.T) (*Manager, *fakeS3, *store.BackupStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backups := store.NewBackupStore(db)
	m := NewManager(Config{
		S3:         S3Config{Bucket: "test-bucket", AccessKey: "k", SecretKey: "s", Region: "us-east-1"},
		Passphrase: "test-passphrase",
		Retain:     2,
	}, db, backups, slog.Default())

	client := newFakeS3()
	m.client = client
	return m, client, backups
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	m, client, backups := setupBackupManager(t)

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	rec, err := backups.Get(id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Status != "complete" {
		t.Errorf("status = %q, want complete", rec.Status)
	}
	if rec.SizeBytes == 0 {
		t.Error("recorded size is zero")
	}

	client.mu.Lock()
	data, ok := client.objects[rec.S3Key]
	client.mu.Unlock()
	if !ok {
		t.Fatalf("object %q not uploaded", rec.S3Key)
	}

	// The uploaded object decrypts back to a SQLite image.
	plain, err := Decrypt(data, "test-passphrase")
	if err != nil {
		t.Fatalf("decrypt uploaded object: %v", err)
	}
	if !bytes.HasPrefix(plain, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a SQLite database")
	}

	status := m.Status()
	if status.State != StateIdle || status.LastBackup == nil {
		t.Errorf("status = %+v after successful backup", status)
	}
}

func TestRunNowDisabled(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{}, db, store.NewBackupStore(db), slog.Default())
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("unconfigured manager ran a backup")
	}
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want disabled", m.Status().State)
	}
}

func TestCleanupRetainsNewest(t *testing.T) {
	m, client, backups := setupBackupManager(t)

	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := m.RunNow(context.Background())
		if err != nil {
			t.Fatalf("run backup %d: %v", i, err)
		}
		ids = append(ids, id)
		// Keys are timestamped to the second.
		time.Sleep(1100 * time.Millisecond)
	}

	if err := m.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	remaining, err := backups.ListComplete()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	for _, rec := range remaining {
		if rec.ID != ids[2] && rec.ID != ids[3] {
			t.Errorf("old backup %d survived cleanup", rec.ID)
		}
	}

	client.mu.Lock()
	deletes := len(client.deletes)
	client.mu.Unlock()
	if deletes != 2 {
		t.Errorf("s3 deletes = %d, want 2", deletes)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	m, _, _ := setupBackupManager(t)

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	body, _, err := m.Download(context.Background(), id)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := Decrypt(data, "test-passphrase"); err != nil {
		t.Errorf("downloaded object does not decrypt: %v", err)
	}

	if _, _, err := m.Download(context.Background(), 9999); err == nil {
		t.Error("download of unknown backup succeeded")
	}
}

package remote

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
)

type fakeRecordStore struct {
	records map[string]map[string]any
	getErr  error
	sets    int
}

func (f *fakeRecordStore) Get(_ context.Context, userID, key string) (map[string]any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.records[userID+"/"+key], nil
}

func (f *fakeRecordStore) Set(_ context.Context, userID, key string, fields map[string]any) error {
	if f.records == nil {
		f.records = make(map[string]map[string]any)
	}
	f.records[userID+"/"+key] = fields
	f.sets++
	return nil
}

func TestNeedsBaselineNeverCompleted(t *testing.T) {
	rs := &fakeRecordStore{}
	cfg := model.DefaultScheduleConfig("user-1")

	if !NeedsBaseline(context.Background(), rs, "user-1", cfg, time.Now(), slog.Default()) {
		t.Error("baseline with no remote record should be due")
	}
}

func TestNeedsBaselineRecentCompletion(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rs := &fakeRecordStore{records: map[string]map[string]any{
		"user-1/baseline_questionnaire": {
			"completed_at": now.AddDate(0, 0, -10).Format(time.RFC3339),
		},
	}}
	cfg := model.DefaultScheduleConfig("user-1") // baseline period 90d

	if NeedsBaseline(context.Background(), rs, "user-1", cfg, now, slog.Default()) {
		t.Error("baseline completed 10 days ago against a 90-day period should not be due")
	}
}

func TestNeedsBaselineElapsedPeriod(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rs := &fakeRecordStore{records: map[string]map[string]any{
		"user-1/baseline_questionnaire": {
			"completed_at": now.AddDate(0, 0, -120).Format(time.RFC3339),
		},
	}}
	cfg := model.DefaultScheduleConfig("user-1")

	if !NeedsBaseline(context.Background(), rs, "user-1", cfg, now, slog.Default()) {
		t.Error("baseline completed 120 days ago against a 90-day period should be due")
	}
}

func TestNeedsBaselineReadFailureSuppresses(t *testing.T) {
	rs := &fakeRecordStore{getErr: errors.New("record service unreachable")}
	cfg := model.DefaultScheduleConfig("user-1")

	if NeedsBaseline(context.Background(), rs, "user-1", cfg, time.Now(), slog.Default()) {
		t.Error("read failure must suppress the prompt, not show it")
	}
}

func TestRecordCompletionBaselineKey(t *testing.T) {
	rs := &fakeRecordStore{}
	at := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

	err := RecordCompletion(context.Background(), rs, "user-1", model.QuestionnaireBaseline, at, map[string]any{"q1": 3})
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}

	rec := rs.records["user-1/baseline_questionnaire"]
	if rec == nil {
		t.Fatal("baseline submission stored under wrong key")
	}
	if rec["completed_at"] != at.Format(time.RFC3339) {
		t.Errorf("completed_at = %v, want %v", rec["completed_at"], at.Format(time.RFC3339))
	}
}

package store

import (
	"testing"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
)

func TestCompletionStats(t *testing.T) {
	cs := NewCompletionStore(setupTestDB(t))

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	prevDue := base.AddDate(0, 0, -1)
	events := []model.CompletionEvent{
		{UserID: "user-1", QuestionnaireType: model.QuestionnaireMood, CompletedAt: base, PeriodDays: 30},
		{UserID: "user-1", QuestionnaireType: model.QuestionnaireMood, CompletedAt: base.AddDate(0, 0, 30), PreviousDue: &prevDue, PeriodDays: 30},
		{UserID: "user-1", QuestionnaireType: model.QuestionnaireMood, CompletedAt: base.AddDate(0, 0, 50), PeriodDays: 20},
		{UserID: "user-1", QuestionnaireType: model.QuestionnaireSleep, CompletedAt: base, PeriodDays: 7},
	}
	for i := range events {
		if err := cs.Record(&events[i]); err != nil {
			t.Fatalf("record event %d: %v", i, err)
		}
		if events[i].ID == 0 {
			t.Errorf("event %d has no assigned id", i)
		}
	}

	stats, err := cs.Stats("user-1", model.QuestionnaireMood)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 {
		t.Errorf("count = %d, want 3", stats.Count)
	}
	if stats.LastPeriodDays != 20 {
		t.Errorf("last period = %d, want 20", stats.LastPeriodDays)
	}
	if stats.LastCompletedAt == nil || !stats.LastCompletedAt.Equal(base.AddDate(0, 0, 50)) {
		t.Errorf("last completed = %v, want %v", stats.LastCompletedAt, base.AddDate(0, 0, 50))
	}
	if stats.AvgIntervalDays != 25 {
		t.Errorf("avg interval = %v, want 25", stats.AvgIntervalDays)
	}
}

func TestCompletionStatsEmpty(t *testing.T) {
	cs := NewCompletionStore(setupTestDB(t))

	stats, err := cs.Stats("user-1", model.QuestionnairePain)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 0 || stats.LastCompletedAt != nil {
		t.Errorf("empty stats = %+v, want zero values", stats)
	}
}

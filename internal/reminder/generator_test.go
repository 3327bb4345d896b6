package reminder

import (
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/calebmorris/wellbeat/internal/database"
	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/store"
)

type fakeConfigSource struct {
	cfg *model.ScheduleConfig
}

func (f *fakeConfigSource) Get(string) (*model.ScheduleConfig, error) {
	return f.cfg, nil
}

func setupGeneratorDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReconcileMaterializesDueTypes(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)
	cfg := model.DefaultScheduleConfig("user-1")
	g := NewGenerator(&fakeConfigSource{cfg: cfg}, ns, slog.Default())

	created, err := g.Reconcile("user-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// Everything except the alternate-channel baseline is due immediately
	// for a never-completed user.
	want := len(model.Registry) - 1
	if created != want {
		t.Errorf("created = %d, want %d", created, want)
	}

	pending, err := ns.GetPending("user-1", model.QuestionnaireBaseline)
	if err != nil {
		t.Fatalf("get baseline pending: %v", err)
	}
	if pending != nil {
		t.Error("baseline must never be materialized as an inbox record")
	}

	// First-time message variant.
	rec, err := ns.GetPending("user-1", model.QuestionnaireMood)
	if err != nil || rec == nil {
		t.Fatalf("get mood pending: rec=%v err=%v", rec, err)
	}
	if rec.Message == "" || rec.Title != model.QuestionnaireMood.DisplayName() {
		t.Errorf("unexpected content: title=%q message=%q", rec.Title, rec.Message)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)
	cfg := model.DefaultScheduleConfig("user-1")
	g := NewGenerator(&fakeConfigSource{cfg: cfg}, ns, slog.Default())

	if _, err := g.Reconcile("user-1"); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	before, _ := ns.PendingCount("user-1")

	created, err := g.Reconcile("user-1")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if created != 0 {
		t.Errorf("second reconcile created %d records, want 0", created)
	}
	after, _ := ns.PendingCount("user-1")
	if after != before {
		t.Errorf("pending count changed: %d -> %d", before, after)
	}
}

func TestReconcileIgnoresShowInAppFlag(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)
	cfg := model.DefaultScheduleConfig("user-1")
	cfg.ShowRemindersInApp = false
	g := NewGenerator(&fakeConfigSource{cfg: cfg}, ns, slog.Default())

	created, err := g.Reconcile("user-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	// The flag suppresses push-time inbox creation only; the reconcile
	// pass still materializes what is due.
	want := len(model.Registry) - 1
	if created != want {
		t.Errorf("created = %d, want %d", created, want)
	}
	if has, _ := ns.HasPending("user-1", model.QuestionnaireMood); !has {
		t.Error("due record not materialized with show-in-app off")
	}
}

func TestReconcileSkipsDisabledTypes(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)
	cfg := model.DefaultScheduleConfig("user-1")
	cfg.EnabledTypes = []model.QuestionnaireType{model.QuestionnaireMood}
	g := NewGenerator(&fakeConfigSource{cfg: cfg}, ns, slog.Default())

	created, err := g.Reconcile("user-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if has, _ := ns.HasPending("user-1", model.QuestionnaireSleep); has {
		t.Error("disabled type was materialized")
	}
}

func TestReconcileSkipsNotYetDue(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)

	now := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	cfg := model.DefaultScheduleConfig("user-1")
	for _, qt := range model.Registry {
		cfg.LastCompleted[qt] = now.AddDate(0, 0, -3) // periods are all >= 30d
	}
	g := NewGenerator(&fakeConfigSource{cfg: cfg}, ns, slog.Default())
	g.now = func() time.Time { return now }

	created, err := g.Reconcile("user-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 when nothing is due", created)
	}
}

func TestReconcileRecurringMessageVariant(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)

	now := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	cfg := model.DefaultScheduleConfig("user-1")
	cfg.EnabledTypes = []model.QuestionnaireType{model.QuestionnairePain}
	cfg.LastCompleted[model.QuestionnairePain] = now.AddDate(0, 0, -45)
	g := NewGenerator(&fakeConfigSource{cfg: cfg}, ns, slog.Default())
	g.now = func() time.Time { return now }

	if _, err := g.Reconcile("user-1"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	rec, err := ns.GetPending("user-1", model.QuestionnairePain)
	if err != nil || rec == nil {
		t.Fatalf("get pending: rec=%v err=%v", rec, err)
	}
	_, firstTime := model.ReminderContent(model.QuestionnairePain, true)
	if rec.Message == firstTime {
		t.Error("overdue recurring type used the first-time message variant")
	}
	// Due date reflects the schedule, not the reconcile instant.
	wantDue := time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC)
	if !rec.DueDate.Equal(wantDue) {
		t.Errorf("due date = %v, want %v", rec.DueDate, wantDue)
	}
}

func TestReconcileAgainstRealConfigStore(t *testing.T) {
	db := setupGeneratorDB(t)
	ns := store.NewNotificationStore(db)
	cs := store.NewConfigStore(db, slog.Default())
	g := NewGenerator(cs, ns, slog.Default())

	if _, err := g.Reconcile("user-1"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	onceCount, _ := ns.PendingCount("user-1")

	if _, err := g.Reconcile("user-1"); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	twiceCount, _ := ns.PendingCount("user-1")

	if onceCount != twiceCount {
		t.Errorf("reconcile not idempotent: %d != %d", onceCount, twiceCount)
	}
}

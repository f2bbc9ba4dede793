package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cybersectk/cstk/internal/config"
)

func testDB(t *testing.T) DB {
	t.Helper()
	db, err := NewSQLite(config.JournalConfig{Path: filepath.Join(t.TempDir(), "cstk.db")})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	cfg := map[string]any{"target": "10.0.0.5", "scan_type": "full"}
	if err := RecordSubmission(ctx, db, "scan-42", "port_scan", "10.0.0.5", cfg); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	subs, err := History(ctx, db, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	if subs[0].JobID != "scan-42" || subs[0].Status != "submitted" {
		t.Errorf("unexpected submission: %+v", subs[0])
	}
	if subs[0].CompletedAt != nil {
		t.Errorf("fresh submission should have no completed_at, got %v", *subs[0].CompletedAt)
	}

	if err := RecordOutcome(ctx, db, "scan-42", "completed", ""); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	subs, err = History(ctx, db, 10)
	if err != nil {
		t.Fatalf("History after outcome: %v", err)
	}
	if subs[0].Status != "completed" {
		t.Errorf("expected status completed, got %q", subs[0].Status)
	}
	if subs[0].CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := RecordSubmission(ctx, db, id, "port_scan", "host-"+id, nil); err != nil {
			t.Fatalf("RecordSubmission %s: %v", id, err)
		}
	}

	subs, err := History(ctx, db, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].JobID != "c" || subs[1].JobID != "b" {
		t.Errorf("expected newest first (c, b), got (%s, %s)", subs[0].JobID, subs[1].JobID)
	}
}

func TestScheduleCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := SaveSchedule(ctx, db, Schedule{
		Name:       "nightly",
		Expr:       "0 2 * * *",
		Kind:       "vulnerability_scan",
		ConfigJSON: `{"target_url":"https://internal.example.com"}`,
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("SaveSchedule: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero schedule id")
	}

	sched, err := GetSchedule(ctx, db, id)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if sched.Name != "nightly" || !sched.Enabled {
		t.Errorf("unexpected schedule: %+v", sched)
	}
	cfg, err := sched.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg["target_url"] != "https://internal.example.com" {
		t.Errorf("unexpected config: %v", cfg)
	}

	if err := SetScheduleEnabled(ctx, db, id, false); err != nil {
		t.Fatalf("SetScheduleEnabled: %v", err)
	}
	enabled, err := ListSchedules(ctx, db, true)
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("expected no enabled schedules, got %d", len(enabled))
	}

	if err := TouchSchedule(ctx, db, id); err != nil {
		t.Fatalf("TouchSchedule: %v", err)
	}
	sched, err = GetSchedule(ctx, db, id)
	if err != nil {
		t.Fatalf("GetSchedule after touch: %v", err)
	}
	if sched.LastRunAt == nil {
		t.Error("expected last_run_at to be set after touch")
	}

	if err := DeleteSchedule(ctx, db, id); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	all, err := ListSchedules(ctx, db, false)
	if err != nil {
		t.Fatalf("ListSchedules after delete: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no schedules after delete, got %d", len(all))
	}
}

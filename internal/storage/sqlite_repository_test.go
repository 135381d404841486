package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "plannerd-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestEventCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := ts(t, "2026-03-02T09:00:00Z")

	ev := EventRecord{
		ID:          "ev-1",
		Name:        "Lecture",
		Description: "Room 204",
		StartAt:     &start,
		EndAt:       ts(t, "2026-03-02T10:00:00Z"),
	}
	if err := repo.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("create event: %v", err)
	}

	got, err := repo.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Name != ev.Name || got.StartAt == nil || !got.StartAt.Equal(start) {
		t.Fatalf("unexpected event get result: %#v", got)
	}

	ev.Name = "Lecture (moved)"
	moved := ts(t, "2026-03-02T11:00:00Z")
	ev.StartAt = &moved
	ev.EndAt = ts(t, "2026-03-02T12:00:00Z")
	if err := repo.UpdateEvent(ctx, ev); err != nil {
		t.Fatalf("update event: %v", err)
	}

	got, err = repo.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get updated event: %v", err)
	}
	if got.Name != "Lecture (moved)" || !got.StartAt.Equal(moved) {
		t.Fatalf("update not applied: %#v", got)
	}

	if err := repo.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if _, err := repo.GetEvent(ctx, ev.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEventSessionChildrenCascade(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	task := EventRecord{
		ID:          "task-1",
		Name:        "Essay",
		EndAt:       ts(t, "2026-03-03T23:59:00Z"),
		HoursNeeded: 4 * time.Hour,
	}
	if err := repo.CreateEvent(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	start := ts(t, "2026-03-02T09:00:00Z")
	parent := task.ID
	session := EventRecord{
		ID:       "session-1",
		Name:     "Essay work session",
		StartAt:  &start,
		EndAt:    ts(t, "2026-03-02T11:00:00Z"),
		ParentID: &parent,
	}
	if err := repo.CreateEvent(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	children, err := repo.ListEvents(ctx, EventListFilter{ParentID: task.ID})
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 1 || children[0].ID != "session-1" {
		t.Fatalf("unexpected children: %#v", children)
	}

	// Deleting the parent cascades to its sessions.
	if err := repo.DeleteEvent(ctx, task.ID); err != nil {
		t.Fatalf("delete parent: %v", err)
	}
	if _, err := repo.GetEvent(ctx, "session-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session gone with parent, got %v", err)
	}
}

func TestSeriesPersistsStopConditionAndTemplates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	start := ts(t, "2026-03-02T09:00:00Z")
	rec := SeriesRecord{
		ID:          "series-1",
		CycleLength: 1,
		StopKind:    stopKindCount,
		StopCount:   4,
	}
	templates := []TemplateRecord{
		{SeriesID: "series-1", Position: 0, ID: "tmpl-1", Name: "Standup", StartAt: &start, EndAt: ts(t, "2026-03-02T09:15:00Z")},
		{SeriesID: "series-1", Position: 1, ID: "tmpl-2", Name: "Next week", EndAt: ts(t, "2026-03-09T09:00:00Z")},
	}
	if err := repo.CreateSeries(ctx, rec, templates); err != nil {
		t.Fatalf("create series: %v", err)
	}

	got, gotTemplates, err := repo.GetSeries(ctx, "series-1")
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if got.StopKind != stopKindCount || got.StopCount != 4 || got.CycleLength != 1 {
		t.Fatalf("unexpected series: %#v", got)
	}
	if len(gotTemplates) != 2 || gotTemplates[0].ID != "tmpl-1" || gotTemplates[1].StartAt != nil {
		t.Fatalf("unexpected templates: %#v", gotTemplates)
	}

	if err := repo.DeleteSeries(ctx, "series-1"); err != nil {
		t.Fatalf("delete series: %v", err)
	}
	if _, _, err := repo.GetSeries(ctx, "series-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestReplaceSnapshotSwapsEverything(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.CreateEvent(ctx, EventRecord{
		ID:    "stale-1",
		Name:  "Stale",
		EndAt: ts(t, "2026-01-01T00:00:00Z"),
	}); err != nil {
		t.Fatalf("seed stale event: %v", err)
	}

	start := ts(t, "2026-03-02T09:00:00Z")
	parent := "task-1"
	snap := Snapshot{
		Events: []EventRecord{
			// Child listed first: snapshot replacement must order parents in
			// ahead of sessions itself.
			{ID: "session-1", Name: "Essay work session", StartAt: &start, EndAt: ts(t, "2026-03-02T11:00:00Z"), ParentID: &parent},
			{ID: "task-1", Name: "Essay", EndAt: ts(t, "2026-03-03T23:59:00Z"), HoursNeeded: 4 * time.Hour, SessionLength: 2 * time.Hour},
		},
		Series: []SeriesRecord{
			{ID: "series-1", CycleLength: 1, StopKind: stopKindCount, StopCount: 2},
		},
		Templates: []TemplateRecord{
			{SeriesID: "series-1", Position: 0, ID: "tmpl-1", Name: "Standup", StartAt: &start, EndAt: ts(t, "2026-03-02T09:15:00Z")},
		},
		Instances: []InstanceRecord{
			{SeriesID: "series-1", CycleAt: start, Position: 0, ID: "tmpl-1", Name: "Standup", StartAt: &start, EndAt: ts(t, "2026-03-02T09:15:00Z")},
		},
	}
	if err := repo.ReplaceSnapshot(ctx, snap); err != nil {
		t.Fatalf("replace snapshot: %v", err)
	}

	if _, err := repo.GetEvent(ctx, "stale-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale event cleared, got %v", err)
	}

	loaded, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(loaded.Events) != 2 || len(loaded.Series) != 1 || len(loaded.Templates) != 1 || len(loaded.Instances) != 1 {
		t.Fatalf("unexpected snapshot shape: %#v", loaded)
	}
	if loaded.Instances[0].ID != "tmpl-1" || !loaded.Instances[0].CycleAt.Equal(start) {
		t.Fatalf("unexpected instance: %#v", loaded.Instances[0])
	}
}

func TestUpdateMissingEventReturnsNotFound(t *testing.T) {
	repo := setupRepo(t)
	err := repo.UpdateEvent(context.Background(), EventRecord{
		ID:    "ghost",
		Name:  "Ghost",
		EndAt: ts(t, "2026-03-02T10:00:00Z"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

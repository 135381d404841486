package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"plannerd/internal/model"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type recordingObserver struct {
	ops []Operation
	ids []string
}

func (r *recordingObserver) Notify(op Operation, ev model.Event, s *Store) error {
	r.ops = append(r.ops, op)
	r.ids = append(r.ids, ev.ID)
	return nil
}

func TestCreateAssignsIdentifier(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ev, err := s.Create("hand in essay", time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.ID != "id-1" {
		t.Fatalf("event id = %q, want id-1", ev.ID)
	}
	got, err := s.Get(ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "hand in essay" {
		t.Fatalf("stored name = %q", got.Name)
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetFindsWorkSessionChildren(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ev, err := s.Create("essay", time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	if err := s.AddWorkSession(ev.ID, start, start.Add(2*time.Hour)); err != nil {
		t.Fatalf("add work session: %v", err)
	}
	parent, _ := s.Get(ev.ID)
	if len(parent.WorkSessions) != 1 {
		t.Fatalf("expected 1 work session, got %d", len(parent.WorkSessions))
	}
	child, err := s.Get(parent.WorkSessions[0].ID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if child.Name != "essay session" {
		t.Fatalf("child name = %q", child.Name)
	}
}

func TestRemoveNotifiesBeforeDeletion(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	obs := &readDuringRemove{store: s, t: t}
	ev, _ := s.Create("meeting", time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	s.AddObserver(obs)
	if _, err := s.Remove(ev.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !obs.sawEvent {
		t.Fatal("observer could not read the event during removal")
	}
	if _, err := s.Get(ev.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("event still present after removal: %v", err)
	}
}

type readDuringRemove struct {
	store    *Store
	t        *testing.T
	sawEvent bool
}

func (r *readDuringRemove) Notify(op Operation, ev model.Event, s *Store) error {
	if op != OpRemove {
		return nil
	}
	if _, err := r.store.Get(ev.ID); err != nil {
		r.t.Errorf("event unreadable during remove notification: %v", err)
		return nil
	}
	r.sawEvent = true
	return nil
}

func TestRemoveUnknownIsNoOp(t *testing.T) {
	s := New()
	obs := &recordingObserver{}
	s.AddObserver(obs)
	if _, err := s.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if len(obs.ops) != 0 {
		t.Fatalf("observers notified for a no-op removal: %v", obs.ops)
	}
}

func TestSettersNotifyChange(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ev, _ := s.Create("lab report", time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC))
	obs := &recordingObserver{}
	s.AddObserver(obs)

	if err := s.SetStart(ev.ID, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("set start: %v", err)
	}
	if err := s.SetName(ev.ID, "lab report v2"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if err := s.SetDescription(ev.ID, "bring data"); err != nil {
		t.Fatalf("set description: %v", err)
	}
	for i, op := range obs.ops {
		if op != OpChange {
			t.Fatalf("notification %d = %s, want change", i, op)
		}
	}
	if len(obs.ops) != 3 {
		t.Fatalf("got %d notifications, want 3", len(obs.ops))
	}
}

func TestSetStartRejectsStartAfterEnd(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ev, _ := s.Create("exam", time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	err := s.SetStart(ev.ID, time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC))
	if !errors.Is(err, model.ErrStartNotBeforeEnd) {
		t.Fatalf("expected ErrStartNotBeforeEnd, got: %v", err)
	}
	got, _ := s.Get(ev.ID)
	if got.HasStart() {
		t.Fatal("rejected setter still mutated the event")
	}
}

func TestStringSettersRejectMalformedInput(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ev, _ := s.Create("exam", time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	obs := &recordingObserver{}
	s.AddObserver(obs)

	if err := s.SetStartString(ev.ID, "not a time"); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got: %v", err)
	}
	if err := s.SetEndString(ev.ID, "2026-13-40 99:99"); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got: %v", err)
	}
	if len(obs.ops) != 0 {
		t.Fatal("malformed input reached observers")
	}

	if err := s.SetStartString(ev.ID, "2026-03-09 08:00"); err != nil {
		t.Fatalf("valid timestamp rejected: %v", err)
	}
}

func TestObserverRemoval(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	obs := &recordingObserver{}
	s.AddObserver(obs)
	s.RemoveObserver(obs)
	if _, err := s.Create("quiet", time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(obs.ops) != 0 {
		t.Fatalf("removed observer still notified: %v", obs.ops)
	}
}

func TestRemoveWorkSession(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ev, _ := s.Create("essay", time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC))
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	if err := s.AddWorkSession(ev.ID, start, start.Add(time.Hour)); err != nil {
		t.Fatalf("add work session: %v", err)
	}
	parent, _ := s.Get(ev.ID)
	if err := s.RemoveWorkSession(ev.ID, parent.WorkSessions[0].ID); err != nil {
		t.Fatalf("remove work session: %v", err)
	}
	parent, _ = s.Get(ev.ID)
	if len(parent.WorkSessions) != 0 {
		t.Fatalf("session list not emptied: %d entries", len(parent.WorkSessions))
	}

	err := s.RemoveWorkSession(ev.ID, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got: %v", err)
	}
}

package alert

import (
	"testing"
	"time"

	"plannerd/internal/store"
)

func waitAlert(t *testing.T, ch <-chan Alert, timeout time.Duration) Alert {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for alert")
		return Alert{}
	}
}

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Schedule(Alert{EventID: "later", At: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(Alert{EventID: "sooner", At: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitAlert(t, engine.C(), time.Second)
	second := waitAlert(t, engine.C(), time.Second)
	if first.EventID != "sooner" || second.EventID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.EventID, second.EventID)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Alert{EventID: "evt", At: at}); err != nil {
			t.Fatalf("schedule alert: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped alerts > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(Alert{EventID: "bad"}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}

func TestResetDropsPendingAlerts(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	if err := engine.Schedule(Alert{EventID: "stale", At: time.Now().Add(30 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	engine.Reset()

	select {
	case a := <-engine.C():
		t.Fatalf("expected no alert after reset, got %#v", a)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestPlanScheduleCoversEventsSessionsAndDeadlines(t *testing.T) {
	s := store.New()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	if _, err := s.CreateTimed("lecture", now.Add(2*time.Hour), now.Add(3*time.Hour)); err != nil {
		t.Fatalf("create timed: %v", err)
	}
	task, err := s.Create("essay", now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.AddWorkSession(task.ID, now.Add(4*time.Hour), now.Add(6*time.Hour)); err != nil {
		t.Fatalf("add session: %v", err)
	}
	// Already past: must not produce an alert.
	if _, err := s.CreateTimed("breakfast", now.Add(-2*time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatalf("create past event: %v", err)
	}

	alerts := PlanSchedule(s, now, 10*time.Minute)
	kinds := make(map[Kind]int)
	for _, a := range alerts {
		kinds[a.Kind]++
		if a.At.Before(now) {
			t.Fatalf("alert in the past: %#v", a)
		}
	}
	if kinds[KindEventStart] != 1 || kinds[KindSessionStart] != 1 || kinds[KindDeadline] != 1 {
		t.Fatalf("unexpected alert mix: %#v", alerts)
	}
}

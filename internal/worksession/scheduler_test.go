package worksession

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"plannerd/internal/store"
)

func newTestStore() *store.Store {
	n := 0
	return store.New(store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// day is 2026-03-02, a Monday.
var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

// busyUntilDeadline sets up the scenario used throughout: now is 08:00, the
// deadline is tomorrow 23:59, and busy blocks leave 09:00-13:00 and
// 15:00-18:00 free today with nothing free afterward.
func busyUntilDeadline(t *testing.T, s *store.Store) (taskID string, deadline time.Time) {
	t.Helper()
	deadline = day.AddDate(0, 0, 1).Add(23*time.Hour + 59*time.Minute)
	task, err := s.Create("essay", deadline)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.SetHoursNeeded(task.ID, 4*time.Hour); err != nil {
		t.Fatalf("set hours needed: %v", err)
	}
	if err := s.SetSessionLength(task.ID, 2*time.Hour); err != nil {
		t.Fatalf("set session length: %v", err)
	}
	for _, span := range [][2]time.Time{
		{at(8, 0), at(9, 0)},
		{at(13, 0), at(15, 0)},
		{at(18, 0), deadline},
	} {
		if _, err := s.CreateTimed("busy", span[0], span[1]); err != nil {
			t.Fatalf("create busy block: %v", err)
		}
	}
	return task.ID, deadline
}

func TestGetTimesSpreadsAcrossWindows(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))

	times, err := sched.GetTimes(taskID, 0)
	if err != nil {
		t.Fatalf("get times: %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("expected 2 sessions, got %d: %v", len(times), times)
	}
	for _, want := range []time.Time{at(9, 0), at(15, 0)} {
		if times[want] != 2*time.Hour {
			t.Fatalf("expected 2h session at %s, got %v", want, times[want])
		}
	}
}

func TestGetTimesMergesAdjacentSessions(t *testing.T) {
	s := newTestStore()
	deadline := at(13, 0)
	task, err := s.Create("essay", deadline)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.SetHoursNeeded(task.ID, 4*time.Hour); err != nil {
		t.Fatalf("set hours needed: %v", err)
	}
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(9, 0))))

	// A single 9:00-13:00 window: two back-to-back sessions merge into one.
	times, err := sched.GetTimes(task.ID, 2*time.Hour)
	if err != nil {
		t.Fatalf("get times: %v", err)
	}
	if len(times) != 1 {
		t.Fatalf("expected 1 merged session, got %d: %v", len(times), times)
	}
	if times[at(9, 0)] != 4*time.Hour {
		t.Fatalf("expected 4h session at 09:00, got %v", times[at(9, 0)])
	}
}

func TestGetTimesPacksLeftoverSpace(t *testing.T) {
	s := newTestStore()
	deadline := at(12, 30)
	task, err := s.Create("essay", deadline)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.SetHoursNeeded(task.ID, 3*time.Hour+30*time.Minute); err != nil {
		t.Fatalf("set hours needed: %v", err)
	}
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(9, 0))))

	times, err := sched.GetTimes(task.ID, 2*time.Hour)
	if err != nil {
		t.Fatalf("get times: %v", err)
	}
	// One full session plus a 1h30m remainder, adjacent so merged.
	if len(times) != 1 || times[at(9, 0)] != 3*time.Hour+30*time.Minute {
		t.Fatalf("expected one 3h30m session at 09:00, got %v", times)
	}
}

func TestGetTimesReportsShortfall(t *testing.T) {
	s := newTestStore()
	deadline := at(11, 0)
	task, err := s.Create("essay", deadline)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.SetHoursNeeded(task.ID, 4*time.Hour); err != nil {
		t.Fatalf("set hours needed: %v", err)
	}
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(9, 0))))

	times, err := sched.GetTimes(task.ID, 2*time.Hour)
	if !errors.Is(err, ErrInsufficientTime) {
		t.Fatalf("expected ErrInsufficientTime, got %v", err)
	}
	if times[at(9, 0)] != 2*time.Hour {
		t.Fatalf("expected partial 2h allocation at 09:00, got %v", times)
	}
}

func TestProcrastinatorFillsLatestSlotFirst(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	if err := s.SetHoursNeeded(taskID, 2*time.Hour); err != nil {
		t.Fatalf("set hours needed: %v", err)
	}
	sched := NewScheduler(s, Procrastinator{}, WithClock(fixedClock(at(8, 0))))

	times, err := sched.GetTimes(taskID, 0)
	if err != nil {
		t.Fatalf("get times: %v", err)
	}
	if len(times) != 1 || times[at(15, 0)] != 2*time.Hour {
		t.Fatalf("expected single 2h session at 15:00, got %v", times)
	}
}

func TestWindowHonorsStartWorkingDate(t *testing.T) {
	s := newTestStore()
	deadline := day.AddDate(0, 0, 5).Add(23 * time.Hour)
	task, err := s.Create("essay", deadline)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.SetStartWorking(task.ID, 2); err != nil {
		t.Fatalf("set start working: %v", err)
	}
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))

	start, end, err := sched.Window(task.ID)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if want := day.AddDate(0, 0, 3); !start.Equal(want) {
		t.Fatalf("expected window start %s, got %s", want, start)
	}
	if !end.Equal(deadline) {
		t.Fatalf("expected window end %s, got %s", deadline, end)
	}
}

func TestScheduleWritesSessionsBack(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))

	if err := sched.Schedule(taskID, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	task, err := s.Get(taskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(task.WorkSessions) != 2 {
		t.Fatalf("expected 2 work sessions, got %d", len(task.WorkSessions))
	}
	for _, session := range task.WorkSessions {
		if session.Completed {
			t.Fatalf("new session %s should start incomplete", session.ID)
		}
		if session.Duration() != 2*time.Hour {
			t.Fatalf("expected 2h session, got %v", session.Duration())
		}
	}
	if !task.WorkSessions[0].Start.Equal(at(9, 0)) {
		t.Fatalf("expected first session at 09:00, got %s", task.WorkSessions[0].Start)
	}
}

func TestRescheduleKeepsCompletedSessions(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))

	if err := sched.Schedule(taskID, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	task, _ := s.Get(taskID)
	doneID := task.WorkSessions[0].ID
	if err := sched.MarkComplete(taskID, doneID); err != nil {
		t.Fatalf("mark complete: %v", err)
	}

	if err := sched.Schedule(taskID, 0); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	task, _ = s.Get(taskID)
	if len(task.WorkSessions) != 2 {
		t.Fatalf("expected 2 sessions after reschedule, got %d", len(task.WorkSessions))
	}
	var keptDone bool
	for _, session := range task.WorkSessions {
		if session.ID == doneID {
			keptDone = session.Completed
		}
	}
	if !keptDone {
		t.Fatalf("completed session %s was lost in reschedule", doneID)
	}
}

func TestMarkCompleteUnknownSession(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))

	if err := sched.MarkComplete(taskID, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPastAndFutureSessions(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))
	if err := sched.Schedule(taskID, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Move the clock to 14:00: the 09:00-11:00 session is past, the
	// 15:00-17:00 one is future.
	later := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(14, 0))))
	past, err := later.PastSessions(taskID)
	if err != nil {
		t.Fatalf("past sessions: %v", err)
	}
	future, err := later.FutureSessions(taskID)
	if err != nil {
		t.Fatalf("future sessions: %v", err)
	}
	if len(past) != 1 || !past[0].Start.Equal(at(9, 0)) {
		t.Fatalf("expected one past session at 09:00, got %v", past)
	}
	if len(future) != 1 || !future[0].Start.Equal(at(15, 0)) {
		t.Fatalf("expected one future session at 15:00, got %v", future)
	}
}

func TestScheduledSessionsOccupyFreeTime(t *testing.T) {
	s := newTestStore()
	taskID, _ := busyUntilDeadline(t, s)
	sched := NewScheduler(s, MorningPerson{}, WithClock(fixedClock(at(8, 0))))
	if err := sched.Schedule(taskID, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// A second task competing for the same day sees the sessions as busy.
	other, err := s.Create("reading", at(18, 0))
	if err != nil {
		t.Fatalf("create second task: %v", err)
	}
	free, err := sched.FreeSlots(other.ID)
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if free[at(11, 0)] != 2*time.Hour || free[at(17, 0)] != time.Hour {
		t.Fatalf("expected free 11:00-13:00 and 17:00-18:00, got %v", free)
	}
	if len(free) != 2 {
		t.Fatalf("expected exactly 2 free slots, got %v", free)
	}
}

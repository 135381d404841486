// Package worksession places work-session blocks for a deadline task into
// the user's free time, honoring a pluggable ordering preference, and tracks
// completion of the sessions it creates.
package worksession

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"plannerd/internal/model"
	"plannerd/internal/store"
)

// ErrInsufficientTime reports that the free time before the deadline could
// not hold the required hours. The partial allocation found is still
// returned alongside it.
var ErrInsufficientTime = errors.New("worksession: insufficient free time before deadline")

// Slot is one free interval candidate for session placement.
type Slot struct {
	Start  time.Time
	Length time.Duration
}

// Orderer ranks free slots according to a user preference. Implementations
// must not drop or alter slots, only reorder them.
type Orderer interface {
	Name() string
	Order(deadlineID string, s *store.Store, sessionLength time.Duration, slots []Slot) []Slot
}

type Clock func() time.Time

// Scheduler owns the placement algorithm. It reads the schedule through the
// store's free-slot query and writes session sub-events back through the
// store.
type Scheduler struct {
	store *store.Store
	order Orderer
	now   Clock
}

type Option func(*Scheduler)

// WithClock injects the time source used for the scheduling window and for
// past/future session queries.
func WithClock(now Clock) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(st *store.Store, order Orderer, opts ...Option) *Scheduler {
	s := &Scheduler{store: st, order: order, now: time.Now}
	if order == nil {
		s.order = MorningPerson{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window is the interval work sessions for the task may occupy: from now, or
// the task's start-working date when that is later, to the deadline.
func (s *Scheduler) Window(deadlineID string) (time.Time, time.Time, error) {
	task, err := s.store.Get(deadlineID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := s.now()
	if sw := task.StartWorkingDate(); !sw.IsZero() && sw.After(start) {
		start = sw
	}
	return start, task.End, nil
}

// FreeSlots returns the free intervals in the task's scheduling window,
// computed over the complete flat-split schedule.
func (s *Scheduler) FreeSlots(deadlineID string) (map[time.Time]time.Duration, error) {
	start, end, err := s.Window(deadlineID)
	if err != nil {
		return nil, err
	}
	return store.FreeSlots(start, s.store.AllEventsFlatSplit(), end), nil
}

// GetTimes chooses session start times for the task so that the summed
// durations cover hoursNeeded. Sessions are sessionLength long, spread over
// the preference-ordered free slots one session per slot per round, so work
// is distributed rather than crammed into the first gap. When full-length
// sessions no longer fit, remaining time is packed into leftover slot space.
// Adjacent sessions are merged. A shortfall returns the partial allocation
// together with ErrInsufficientTime.
func (s *Scheduler) GetTimes(deadlineID string, sessionLength time.Duration) (map[time.Time]time.Duration, error) {
	task, err := s.store.Get(deadlineID)
	if err != nil {
		return nil, err
	}
	if sessionLength <= 0 {
		sessionLength = task.SessionLength
	}
	if sessionLength <= 0 {
		return nil, fmt.Errorf("worksession: task %s has no session length", deadlineID)
	}
	return s.allocate(deadlineID, sessionLength, task.HoursNeeded)
}

func (s *Scheduler) allocate(deadlineID string, sessionLength, needed time.Duration) (map[time.Time]time.Duration, error) {
	sessions := make(map[time.Time]time.Duration)
	if needed <= 0 {
		return sessions, nil
	}

	free, err := s.FreeSlots(deadlineID)
	if err != nil {
		return nil, err
	}
	slots := make([]Slot, 0, len(free))
	for at, length := range free {
		slots = append(slots, Slot{Start: at, Length: length})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	slots = s.order.Order(deadlineID, s.store, sessionLength, slots)

	used := make([]time.Duration, len(slots))
	remaining := needed

	// Round-robin full-length sessions across the ordered slots.
	for remaining > 0 {
		progress := false
		for i := range slots {
			if remaining <= 0 {
				break
			}
			if slots[i].Length-used[i] >= sessionLength {
				sessions[slots[i].Start.Add(used[i])] = sessionLength
				used[i] += sessionLength
				remaining -= sessionLength
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	// Shortfall: pack leftover slot space with shorter sessions.
	for i := range slots {
		if remaining <= 0 {
			break
		}
		room := slots[i].Length - used[i]
		if room <= 0 {
			continue
		}
		take := room
		if take > remaining {
			take = remaining
		}
		sessions[slots[i].Start.Add(used[i])] = take
		used[i] += take
		remaining -= take
	}

	sessions = MergeAdjacent(sessions)
	if remaining > 0 {
		return sessions, fmt.Errorf("%w: %v short for task %s", ErrInsufficientTime, remaining, deadlineID)
	}
	return sessions, nil
}

// MergeAdjacent collapses sessions where one's end equals another's start
// into a single session spanning both.
func MergeAdjacent(sessions map[time.Time]time.Duration) map[time.Time]time.Duration {
	starts := make([]time.Time, 0, len(sessions))
	for at := range sessions {
		starts = append(starts, at)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	out := make(map[time.Time]time.Duration, len(sessions))
	var openStart time.Time
	var openLength time.Duration
	for i, at := range starts {
		if i > 0 && openStart.Add(openLength).Equal(at) {
			openLength += sessions[at]
			continue
		}
		if i > 0 {
			out[openStart] = openLength
		}
		openStart, openLength = at, sessions[at]
	}
	if len(starts) > 0 {
		out[openStart] = openLength
	}
	return out
}

// Schedule computes an allocation for the task and writes the resulting
// work-session sub-events back into it. Completed sessions survive
// rescheduling and their hours count toward the requirement; every pending
// session is replaced. The new sessions start out incomplete.
func (s *Scheduler) Schedule(deadlineID string, sessionLength time.Duration) error {
	task, err := s.store.Get(deadlineID)
	if err != nil {
		return err
	}
	if sessionLength <= 0 {
		sessionLength = task.SessionLength
	}
	if sessionLength <= 0 {
		return fmt.Errorf("worksession: task %s has no session length", deadlineID)
	}

	var kept []model.Event
	var keptHours time.Duration
	for _, session := range task.WorkSessions {
		if session.Completed {
			kept = append(kept, session)
			keptHours += session.Duration()
		}
	}
	// Pending sessions are dropped first so their time reads as free.
	if err := s.store.SetWorkSessions(deadlineID, kept); err != nil {
		return err
	}

	needed := task.HoursNeeded - keptHours
	allocation, allocErr := s.allocate(deadlineID, sessionLength, needed)
	if allocErr != nil && !errors.Is(allocErr, ErrInsufficientTime) {
		return allocErr
	}

	sessions := append([]model.Event(nil), kept...)
	for at, length := range allocation {
		start := at
		sessions = append(sessions, model.Event{
			ID:    s.store.NewID(),
			Name:  task.Name + " work session",
			Start: &start,
			End:   at.Add(length),
		})
	}
	sessions = store.TimeOrder(sessions)
	if err := s.store.SetWorkSessions(deadlineID, sessions); err != nil {
		return err
	}
	return allocErr
}

// MarkComplete flags one of the task's sessions as complete.
func (s *Scheduler) MarkComplete(deadlineID, sessionID string) error {
	return s.setCompleted(deadlineID, sessionID, true)
}

// MarkIncomplete clears a session's completion flag.
func (s *Scheduler) MarkIncomplete(deadlineID, sessionID string) error {
	return s.setCompleted(deadlineID, sessionID, false)
}

func (s *Scheduler) setCompleted(deadlineID, sessionID string, done bool) error {
	task, err := s.store.Get(deadlineID)
	if err != nil {
		return err
	}
	for i := range task.WorkSessions {
		if task.WorkSessions[i].ID == sessionID {
			task.WorkSessions[i].Completed = done
			return s.store.SetWorkSessions(deadlineID, task.WorkSessions)
		}
	}
	return fmt.Errorf("%w: session %s", store.ErrNotFound, sessionID)
}

// PastSessions returns the task's sessions that end before now, in
// chronological order.
func (s *Scheduler) PastSessions(deadlineID string) ([]model.Event, error) {
	return s.sessionsSplit(deadlineID, true)
}

// FutureSessions returns the task's sessions that end at or after now.
func (s *Scheduler) FutureSessions(deadlineID string) ([]model.Event, error) {
	return s.sessionsSplit(deadlineID, false)
}

func (s *Scheduler) sessionsSplit(deadlineID string, past bool) ([]model.Event, error) {
	task, err := s.store.Get(deadlineID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []model.Event
	for _, session := range task.WorkSessions {
		if session.End.Before(now) == past {
			out = append(out, session)
		}
	}
	return store.TimeOrder(out), nil
}

// DaySchedule groups the complete schedule by calendar day from today to the
// task's deadline. It is a read-only view for display.
func (s *Scheduler) DaySchedule(deadlineID string) (map[time.Time][]model.Event, error) {
	task, err := s.store.Get(deadlineID)
	if err != nil {
		return nil, err
	}
	return s.store.GetRange(s.now(), task.End), nil
}

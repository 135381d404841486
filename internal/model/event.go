package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrStartNotBeforeEnd = errors.New("model: event start must be before end")
	ErrNestedSessions    = errors.New("model: work sessions must not contain work sessions")
)

// Event is the atomic schedulable unit. An event always has an end time (its
// deadline); the start time is optional. A deadline-style event carries work
// sessions as child events, placed by the work-session scheduler.
type Event struct {
	ID          string
	Name        string
	Description string
	Start       *time.Time
	End         time.Time

	// Work-session bookkeeping for deadline tasks.
	WorkSessions  []Event
	SessionLength time.Duration
	HoursNeeded   time.Duration

	// StartWorkingDays restricts how many days before the deadline work
	// sessions may begin. Zero means no restriction.
	StartWorkingDays int

	// Completed is meaningful on work-session children only.
	Completed bool

	// SeriesID links a recurring instance back to its series. Empty for
	// non-recurring events.
	SeriesID string
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("model: event id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("model: event name is required")
	}
	if e.End.IsZero() {
		return errors.New("model: event end is required")
	}
	if e.Start != nil && !e.Start.Before(e.End) {
		return fmt.Errorf("%w: start %s, end %s", ErrStartNotBeforeEnd, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	}
	if e.SessionLength < 0 {
		return errors.New("model: session length must not be negative")
	}
	if e.HoursNeeded < 0 {
		return errors.New("model: hours needed must not be negative")
	}
	if e.StartWorkingDays < 0 {
		return errors.New("model: start-working offset must not be negative")
	}
	for _, s := range e.WorkSessions {
		if len(s.WorkSessions) > 0 {
			return ErrNestedSessions
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("model: work session %q: %w", s.ID, err)
		}
	}
	return nil
}

// HasStart reports whether the event has a defined start time.
func (e Event) HasStart() bool {
	return e.Start != nil
}

// EffectiveStart is the event's start time when present, else its end time.
// It is the ordering key for events without a defined start.
func (e Event) EffectiveStart() time.Time {
	if e.Start != nil {
		return *e.Start
	}
	return e.End
}

// Duration is end minus start, or zero for events without a start.
func (e Event) Duration() time.Duration {
	if e.Start == nil {
		return 0
	}
	return e.End.Sub(*e.Start)
}

// Day is the calendar day the event lands on: the start day when a start is
// present, otherwise the end day.
func (e Event) Day() time.Time {
	return DayOf(e.EffectiveStart())
}

// StartWorkingDate is the earliest date work sessions may be scheduled:
// StartWorkingDays before the deadline's day. With no restriction it returns
// the zero time.
func (e Event) StartWorkingDate() time.Time {
	if e.StartWorkingDays == 0 {
		return time.Time{}
	}
	return DayOf(e.End).AddDate(0, 0, -e.StartWorkingDays)
}

// Clone returns a deep copy; the work-session slice and the optional start
// pointer are not shared with the receiver.
func (e Event) Clone() Event {
	out := e
	if e.Start != nil {
		start := *e.Start
		out.Start = &start
	}
	if len(e.WorkSessions) > 0 {
		out.WorkSessions = make([]Event, len(e.WorkSessions))
		for i, s := range e.WorkSessions {
			out.WorkSessions[i] = s.Clone()
		}
	}
	return out
}

// WithTimes returns a copy of the event spanning [start, end). A nil start
// produces a deadline-only copy.
func (e Event) WithTimes(start *time.Time, end time.Time) Event {
	out := e.Clone()
	if start != nil {
		s := *start
		out.Start = &s
	} else {
		out.Start = nil
	}
	out.End = end
	return out
}

// DayOf truncates a timestamp to midnight in its own location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyTemplate      = errors.New("model: series template must not be empty")
	ErrInvalidCycleLength = errors.New("model: invalid series cycle length")
	ErrInvalidStop        = errors.New("model: invalid stop condition")
)

// Series is the authored template of a recurring event cycle. It holds one
// cycle's worth of template events plus the policy deciding how many cycles
// to generate. Derived instances are owned by the recurrence engine, never by
// the series itself.
type Series struct {
	ID          string
	Template    []Event
	CycleLength int
	Stop        StopCondition
}

func (s Series) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("model: series id is required")
	}
	if len(s.Template) == 0 {
		return ErrEmptyTemplate
	}
	if s.CycleLength <= 0 || s.CycleLength > len(s.Template) {
		return fmt.Errorf("%w: %d events per cycle, %d template events", ErrInvalidCycleLength, s.CycleLength, len(s.Template))
	}
	if s.Stop == nil {
		return fmt.Errorf("%w: missing", ErrInvalidStop)
	}
	if err := s.Stop.Validate(); err != nil {
		return err
	}
	for _, ev := range s.Template {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("model: series template event %q: %w", ev.ID, err)
		}
	}
	return nil
}

// Period is the cycle period: the last template event's effective end minus
// the first template event's effective start.
func (s Series) Period() time.Duration {
	if len(s.Template) == 0 {
		return 0
	}
	first := s.Template[0].EffectiveStart()
	last := s.Template[len(s.Template)-1].End
	return last.Sub(first)
}

// StopCondition decides how many cycles a series expansion produces. Sequence
// is a lazy, finite iterator over cycle-start timestamps; it yields false when
// exhausted. Rebase derives the condition to apply when a series is repaired
// from a new anchor, given the number of cycles preserved before it.
type StopCondition interface {
	Validate() error
	Sequence(first time.Time, period time.Duration) func() (time.Time, bool)
	Rebase(anchor time.Time, cyclesBefore int) StopCondition
}

// FixedCount produces exactly Count cycles.
type FixedCount struct {
	Count int
}

func (c FixedCount) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("%w: fixed count %d", ErrInvalidStop, c.Count)
	}
	return nil
}

func (c FixedCount) Sequence(first time.Time, period time.Duration) func() (time.Time, bool) {
	produced := 0
	next := first
	return func() (time.Time, bool) {
		if produced >= c.Count {
			return time.Time{}, false
		}
		start := next
		produced++
		next = next.Add(period)
		return start, true
	}
}

func (c FixedCount) Rebase(anchor time.Time, cyclesBefore int) StopCondition {
	remaining := c.Count - cyclesBefore
	if remaining < 1 {
		remaining = 1
	}
	return FixedCount{Count: remaining}
}

// Interval produces as many cycles as start strictly inside [From, To).
type Interval struct {
	From time.Time
	To   time.Time
}

func (c Interval) Validate() error {
	if c.From.IsZero() || c.To.IsZero() {
		return fmt.Errorf("%w: interval bounds are required", ErrInvalidStop)
	}
	if !c.From.Before(c.To) {
		return fmt.Errorf("%w: interval start %s is not before end %s", ErrInvalidStop,
			c.From.Format(time.RFC3339), c.To.Format(time.RFC3339))
	}
	return nil
}

func (c Interval) Sequence(first time.Time, period time.Duration) func() (time.Time, bool) {
	next := c.From
	return func() (time.Time, bool) {
		if period <= 0 || !next.Before(c.To) {
			return time.Time{}, false
		}
		start := next
		next = next.Add(period)
		return start, true
	}
}

func (c Interval) Rebase(anchor time.Time, cyclesBefore int) StopCondition {
	return Interval{From: anchor, To: c.To}
}

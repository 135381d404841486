// Package store owns the authoritative map from event identifier to event.
// All reads and writes funnel through it; every mutation synchronously
// notifies registered observers before the call returns.
//
// The store is designed for single-threaded synchronous use. Embedded in a
// concurrent caller it must be wrapped in a single mutual-exclusion boundary
// together with the recurrence engine that observes it.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"plannerd/internal/model"
)

var (
	ErrNotFound     = errors.New("store: event not found")
	ErrBadTimestamp = errors.New("store: malformed timestamp")
)

// TimeLayout is the wire format accepted by the string-based time setters.
const TimeLayout = "2006-01-02 15:04"

// Operation tags a store mutation for observers.
type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
	OpChange Operation = "change"
)

// Observer receives one synchronous callback per mutating store call: after
// the store's state is updated for add/change, before deletion for remove.
type Observer interface {
	Notify(op Operation, ev model.Event, s *Store) error
}

// InstanceSource supplies the concrete instances generated by active
// recurring series, for inclusion in full-schedule queries.
type InstanceSource interface {
	Instances() []model.Event
}

// Store is the event arena. Series structures reference events held here by
// identifier only.
type Store struct {
	events    map[string]model.Event
	observers []Observer
	newID     func() string
	instances InstanceSource
}

type Option func(*Store)

// WithIDGenerator replaces the identifier generator used for created events.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func New(opts ...Option) *Store {
	s := &Store{
		events: make(map[string]model.Event),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetInstanceSource registers the supplier of recurring-series instances.
func (s *Store) SetInstanceSource(src InstanceSource) {
	s.instances = src
}

// NewID hands out a fresh event identifier from the store's generator.
func (s *Store) NewID() string {
	return s.newID()
}

func (s *Store) Len() int {
	return len(s.events)
}

// Create makes a deadline-only event, assigns it an identifier and adds it.
func (s *Store) Create(name string, end time.Time) (model.Event, error) {
	ev := model.Event{ID: s.newID(), Name: name, End: end}
	if err := s.Add(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// CreateTimed makes an event spanning [start, end), assigns it an identifier
// and adds it.
func (s *Store) CreateTimed(name string, start, end time.Time) (model.Event, error) {
	ev := model.Event{ID: s.newID(), Name: name, Start: &start, End: end}
	if err := s.Add(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Add inserts an event, overwriting any event with the same identifier, and
// notifies observers with OpAdd.
func (s *Store) Add(ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	s.events[ev.ID] = ev.Clone()
	return s.notify(OpAdd, ev)
}

// AddAll inserts events in order, stopping at the first failure.
func (s *Store) AddAll(events []model.Event) error {
	for _, ev := range events {
		if err := s.Add(ev); err != nil {
			return fmt.Errorf("store: add %q: %w", ev.ID, err)
		}
	}
	return nil
}

// Get returns the event with the given identifier. Work-session children are
// found by searching their parents' session lists.
func (s *Store) Get(id string) (model.Event, error) {
	if ev, ok := s.events[id]; ok {
		return ev.Clone(), nil
	}
	for _, ev := range s.events {
		for _, session := range ev.WorkSessions {
			if session.ID == id {
				return session.Clone(), nil
			}
		}
	}
	return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Store) Contains(id string) bool {
	_, err := s.Get(id)
	return err == nil
}

// Remove notifies observers with OpRemove while the event is still readable,
// then deletes it. Removing an unknown identifier is a no-op returning
// ErrNotFound.
func (s *Store) Remove(id string) (model.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.notify(OpRemove, ev); err != nil {
		return model.Event{}, err
	}
	delete(s.events, id)
	return ev, nil
}

// mutate applies fn to the stored event and notifies observers with OpChange.
func (s *Store) mutate(id string, fn func(*model.Event) error) error {
	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := ev.Clone()
	if err := fn(&updated); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	s.events[id] = updated
	return s.notify(OpChange, updated)
}

func (s *Store) SetStart(id string, start time.Time) error {
	return s.mutate(id, func(ev *model.Event) error {
		if !start.Before(ev.End) {
			return fmt.Errorf("%w: start %s, end %s", model.ErrStartNotBeforeEnd,
				start.Format(TimeLayout), ev.End.Format(TimeLayout))
		}
		ev.Start = &start
		return nil
	})
}

func (s *Store) SetEnd(id string, end time.Time) error {
	return s.mutate(id, func(ev *model.Event) error {
		if ev.Start != nil && !ev.Start.Before(end) {
			return fmt.Errorf("%w: start %s, end %s", model.ErrStartNotBeforeEnd,
				ev.Start.Format(TimeLayout), end.Format(TimeLayout))
		}
		ev.End = end
		return nil
	})
}

// SetStartString parses value in TimeLayout and rejects malformed input
// before any mutation happens.
func (s *Store) SetStartString(id, value string) error {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, value)
	}
	return s.SetStart(id, t)
}

func (s *Store) SetEndString(id, value string) error {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, value)
	}
	return s.SetEnd(id, t)
}

func (s *Store) SetName(id, name string) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.Name = name
		return nil
	})
}

func (s *Store) SetDescription(id, description string) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.Description = description
		return nil
	})
}

func (s *Store) SetSessionLength(id string, length time.Duration) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.SessionLength = length
		return nil
	})
}

func (s *Store) SetHoursNeeded(id string, needed time.Duration) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.HoursNeeded = needed
		return nil
	})
}

// SetStartWorking restricts scheduling of work sessions to begin no earlier
// than days before the event's deadline.
func (s *Store) SetStartWorking(id string, days int) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.StartWorkingDays = days
		return nil
	})
}

// SetSeriesRef stamps or clears the recurring-series back-reference on an
// event. An empty seriesID detaches the event from its series.
func (s *Store) SetSeriesRef(id, seriesID string) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.SeriesID = seriesID
		return nil
	})
}

func (s *Store) SetWorkSessions(id string, sessions []model.Event) error {
	return s.mutate(id, func(ev *model.Event) error {
		ev.WorkSessions = sessions
		return nil
	})
}

// AddWorkSession appends a session spanning [start, end) to the event's
// session list, assigning the session a fresh identifier.
func (s *Store) AddWorkSession(id string, start, end time.Time) error {
	return s.mutate(id, func(ev *model.Event) error {
		session := model.Event{
			ID:    s.newID(),
			Name:  ev.Name + " session",
			Start: &start,
			End:   end,
		}
		ev.WorkSessions = append(ev.WorkSessions, session)
		return nil
	})
}

func (s *Store) RemoveWorkSession(id, sessionID string) error {
	return s.mutate(id, func(ev *model.Event) error {
		for i, session := range ev.WorkSessions {
			if session.ID == sessionID {
				ev.WorkSessions = append(ev.WorkSessions[:i], ev.WorkSessions[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	})
}

// AddObserver registers an observer. Observers are notified in registration
// order.
func (s *Store) AddObserver(obs Observer) {
	s.observers = append(s.observers, obs)
}

// RemoveObserver de-registers a previously added observer.
func (s *Store) RemoveObserver(obs Observer) {
	for i, existing := range s.observers {
		if existing == obs {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(op Operation, ev model.Event) error {
	for _, obs := range s.observers {
		if err := obs.Notify(op, ev.Clone(), s); err != nil {
			return fmt.Errorf("store: notify %s: %w", op, err)
		}
	}
	return nil
}

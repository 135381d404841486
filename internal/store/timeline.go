package store

import (
	"sort"
	"time"

	"plannerd/internal/model"
)

const endOfDay = 23*time.Hour + 59*time.Minute + 59*time.Second

// TimeOrder returns the input sorted ascending by effective start. The input
// slice is not modified.
func TimeOrder(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveStart().Before(out[j].EffectiveStart())
	})
	return out
}

// FlattenWorkSessions expands each event into itself followed by its
// work-session children. Children are not expanded further.
func FlattenWorkSessions(events []model.Event) []model.Event {
	flat := make([]model.Event, 0, len(events))
	for _, ev := range events {
		flat = append(flat, ev)
		flat = append(flat, ev.WorkSessions...)
	}
	return flat
}

// SplitByDay splits an event spanning multiple calendar days at midnight
// boundaries: the first segment runs from the original start to 23:59:59 of
// that day, one full-day segment covers every day fully spanned, and the last
// segment runs from 00:00:00 of the end day to the original end. Segments
// keep the parent's identifier and name. Events without a start, or starting
// and ending on the same day, come back unchanged as a single-element list.
func SplitByDay(ev model.Event) []model.Event {
	if !ev.HasStart() || model.SameDay(*ev.Start, ev.End) {
		return []model.Event{ev}
	}

	var segments []model.Event
	firstDay := model.DayOf(*ev.Start)
	segments = append(segments, segment(ev, *ev.Start, firstDay.Add(endOfDay)))
	for day := firstDay.AddDate(0, 0, 1); day.Before(model.DayOf(ev.End)); day = day.AddDate(0, 0, 1) {
		segments = append(segments, segment(ev, day, day.Add(endOfDay)))
	}
	segments = append(segments, segment(ev, model.DayOf(ev.End), ev.End))
	return segments
}

func segment(parent model.Event, start, end time.Time) model.Event {
	return model.Event{
		ID:       parent.ID,
		Name:     parent.Name,
		Start:    &start,
		End:      end,
		SeriesID: parent.SeriesID,
	}
}

// FlatSplit flattens work sessions and splits every resulting event at day
// boundaries.
func FlatSplit(events []model.Event) []model.Event {
	var out []model.Event
	for _, ev := range FlattenWorkSessions(events) {
		out = append(out, SplitByDay(ev)...)
	}
	return out
}

// TotalHours sums the durations of the given events.
func TotalHours(events []model.Event) time.Duration {
	var total time.Duration
	for _, ev := range events {
		total += ev.Duration()
	}
	return total
}

// FreeSlots walks the window [start, end] against the flattened, time-ordered
// candidate events and returns every free interval as a map from interval
// start to duration. The free intervals plus the clipped busy intervals
// partition the window exactly.
func FreeSlots(start time.Time, events []model.Event, end time.Time) map[time.Time]time.Duration {
	free := make(map[time.Time]time.Duration)
	if !start.Before(end) {
		return free
	}

	cursor := start
	for _, ev := range TimeOrder(FlattenWorkSessions(events)) {
		if !ev.HasStart() {
			continue
		}
		if !ev.End.After(cursor) {
			continue
		}
		if !ev.Start.Before(end) {
			break
		}
		if ev.Start.After(cursor) {
			free[cursor] = ev.Start.Sub(cursor)
		}
		if ev.End.After(cursor) {
			cursor = ev.End
		}
		if !cursor.Before(end) {
			return free
		}
	}
	if cursor.Before(end) {
		free[cursor] = end.Sub(cursor)
	}
	return free
}

// AllEvents returns every stored event in chronological order.
func (s *Store) AllEvents() []model.Event {
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Clone())
	}
	return TimeOrder(out)
}

// GetDay returns, keyed by identifier, every stored event landing on the
// given date: its start date when a start is present, else its end date.
func (s *Store) GetDay(day time.Time) map[string]model.Event {
	out := make(map[string]model.Event)
	for _, ev := range s.events {
		if model.SameDay(ev.EffectiveStart(), day) {
			out[ev.ID] = ev.Clone()
		}
	}
	return out
}

// GetRange maps every date in [from, to] inclusive to the flat-split events
// landing on that date. Keys are midnights in from's location.
func (s *Store) GetRange(from, to time.Time) map[time.Time][]model.Event {
	schedule := s.AllEventsFlatSplit()
	out := make(map[time.Time][]model.Event)
	for day := model.DayOf(from); !day.After(model.DayOf(to)); day = day.AddDate(0, 0, 1) {
		var events []model.Event
		for _, ev := range schedule {
			if model.SameDay(ev.EffectiveStart(), day) {
				events = append(events, ev)
			}
		}
		out[day] = events
	}
	return out
}

// AllEventsFlatSplit returns the complete schedule: every stored event plus
// every instance generated by active recurring series, flattened for work
// sessions, split at day boundaries and time-ordered. Stored events carrying
// a series back-reference are contributed through the instance source, which
// holds the authoritative copy of every series cycle.
func (s *Store) AllEventsFlatSplit() []model.Event {
	var out []model.Event
	for _, ev := range s.events {
		if ev.SeriesID != "" && s.instances != nil {
			continue
		}
		out = append(out, FlatSplit([]model.Event{ev})...)
	}
	if s.instances != nil {
		out = append(out, FlatSplit(s.instances.Instances())...)
	}
	return TimeOrder(out)
}

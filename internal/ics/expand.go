package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

const defaultMaxPerEvent = 1000

// Occurrence is one concrete busy interval produced from a feed event.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// ExpandConfig bounds recurrence expansion to a window, converts results into
// one display location and caps runaway rules.
type ExpandConfig struct {
	Location    *time.Location
	From, To    time.Time
	MaxPerEvent int
}

// Expand turns parsed events into concrete occurrences within the window.
// Non-recurring events yield at most one occurrence; RRULE events are
// expanded with EXDATEs removed. Occurrences come back in chronological
// order.
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.To.Before(cfg.From) {
		return nil, errors.New("ics: expansion window end precedes start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxPerEvent
	}

	var out []Occurrence
	for _, ev := range events {
		if ev.RawRRule == "" {
			if overlaps(ev.Start, ev.End, cfg.From, cfg.To) {
				out = append(out, makeOccurrence(ev, ev.Start, cfg.Location))
			}
			continue
		}
		occ, err := expandRecurring(ev, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func expandRecurring(ev ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(cfg.From.In(ev.Start.Location()), cfg.To.In(ev.Start.Location()), true)
	if len(starts) > cfg.MaxPerEvent {
		starts = starts[:cfg.MaxPerEvent]
	}

	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		out = append(out, makeOccurrence(ev, start, cfg.Location))
	}
	return out, nil
}

func makeOccurrence(ev ParsedEvent, start time.Time, loc *time.Location) Occurrence {
	var end time.Time
	if ev.AllDay {
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		start = day
		end = day.AddDate(0, 0, 1)
	} else {
		end = start.Add(ev.End.Sub(ev.Start))
	}
	return Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       start.In(loc),
		End:         end.In(loc),
		AllDay:      ev.AllDay,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

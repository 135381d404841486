package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"plannerd/internal/model"
	"plannerd/internal/recurrence"
	"plannerd/internal/store"
)

const (
	stopKindCount    = "count"
	stopKindInterval = "interval"
)

// SnapshotState captures the store's events and the engine's series state as
// a flat snapshot. A nil engine snapshots the store alone.
func SnapshotState(s *store.Store, eng *recurrence.Engine) (Snapshot, error) {
	var snap Snapshot
	for _, ev := range s.AllEvents() {
		snap.Events = append(snap.Events, eventToRecord(ev, nil))
		for _, session := range ev.WorkSessions {
			parent := ev.ID
			snap.Events = append(snap.Events, eventToRecord(session, &parent))
		}
	}
	if eng == nil {
		return snap, nil
	}

	series := eng.AllSeries()
	sort.Slice(series, func(i, j int) bool { return series[i].ID < series[j].ID })
	for _, sr := range series {
		rec, templates, err := seriesToRecords(sr)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Series = append(snap.Series, rec)
		snap.Templates = append(snap.Templates, templates...)

		cycles, err := eng.Cycles(sr.ID)
		if err != nil {
			return Snapshot{}, err
		}
		keys := make([]time.Time, 0, len(cycles))
		for key := range cycles {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
		for _, key := range keys {
			for i, ev := range cycles[key] {
				snap.Instances = append(snap.Instances, instanceToRecord(sr.ID, key, i, ev))
			}
		}
	}
	return snap, nil
}

// RestoreState rebuilds the store and engine from a snapshot. The store
// receives every event with its work-session children reattached; the engine
// is hydrated series by series, which also restores the series
// back-references on store-resident events.
func RestoreState(snap Snapshot, s *store.Store, eng *recurrence.Engine) error {
	parents := make(map[string]*model.Event)
	var order []string
	for _, rec := range snap.Events {
		if rec.ParentID != nil {
			continue
		}
		ev := recordToEvent(rec)
		// Back-references are re-stamped during series hydration.
		ev.SeriesID = ""
		parents[ev.ID] = &ev
		order = append(order, ev.ID)
	}
	for _, rec := range snap.Events {
		if rec.ParentID == nil {
			continue
		}
		parent, ok := parents[*rec.ParentID]
		if !ok {
			return fmt.Errorf("storage: session %s references unknown event %s", rec.ID, *rec.ParentID)
		}
		parent.WorkSessions = append(parent.WorkSessions, recordToEvent(rec))
	}
	for _, id := range order {
		if err := s.Add(*parents[id]); err != nil {
			return fmt.Errorf("restore event %s: %w", id, err)
		}
	}

	if eng == nil {
		return nil
	}
	templates := make(map[string][]model.Event)
	for _, tmpl := range snap.Templates {
		templates[tmpl.SeriesID] = append(templates[tmpl.SeriesID], templateToEvent(tmpl))
	}
	cycles := make(map[string]map[time.Time][]model.Event)
	for _, inst := range snap.Instances {
		if cycles[inst.SeriesID] == nil {
			cycles[inst.SeriesID] = make(map[time.Time][]model.Event)
		}
		cycles[inst.SeriesID][inst.CycleAt] = append(cycles[inst.SeriesID][inst.CycleAt], instanceToEvent(inst))
	}
	for _, rec := range snap.Series {
		stop, err := recordToStop(rec)
		if err != nil {
			return err
		}
		sr := model.Series{
			ID:          rec.ID,
			Template:    templates[rec.ID],
			CycleLength: rec.CycleLength,
			Stop:        stop,
		}
		if err := eng.Hydrate(sr, cycles[rec.ID]); err != nil {
			return fmt.Errorf("restore series %s: %w", rec.ID, err)
		}
	}
	return nil
}

// SaveState snapshots the live state and replaces the repository contents
// with it.
func SaveState(ctx context.Context, repo Repository, s *store.Store, eng *recurrence.Engine) error {
	snap, err := SnapshotState(s, eng)
	if err != nil {
		return err
	}
	return repo.ReplaceSnapshot(ctx, snap)
}

// LoadState reads the persisted snapshot and rebuilds the store and engine
// from it.
func LoadState(ctx context.Context, repo Repository, s *store.Store, eng *recurrence.Engine) error {
	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	return RestoreState(snap, s, eng)
}

func eventToRecord(ev model.Event, parentID *string) EventRecord {
	rec := EventRecord{
		ID:               ev.ID,
		Name:             ev.Name,
		Description:      ev.Description,
		EndAt:            ev.End,
		SessionLength:    ev.SessionLength,
		HoursNeeded:      ev.HoursNeeded,
		StartWorkingDays: ev.StartWorkingDays,
		Completed:        ev.Completed,
		SeriesID:         ev.SeriesID,
		ParentID:         parentID,
	}
	if ev.Start != nil {
		start := *ev.Start
		rec.StartAt = &start
	}
	return rec
}

func recordToEvent(rec EventRecord) model.Event {
	ev := model.Event{
		ID:               rec.ID,
		Name:             rec.Name,
		Description:      rec.Description,
		End:              rec.EndAt,
		SessionLength:    rec.SessionLength,
		HoursNeeded:      rec.HoursNeeded,
		StartWorkingDays: rec.StartWorkingDays,
		Completed:        rec.Completed,
		SeriesID:         rec.SeriesID,
	}
	if rec.StartAt != nil {
		start := *rec.StartAt
		ev.Start = &start
	}
	return ev
}

func seriesToRecords(sr model.Series) (SeriesRecord, []TemplateRecord, error) {
	rec := SeriesRecord{ID: sr.ID, CycleLength: sr.CycleLength}
	switch stop := sr.Stop.(type) {
	case model.FixedCount:
		rec.StopKind = stopKindCount
		rec.StopCount = stop.Count
	case model.Interval:
		rec.StopKind = stopKindInterval
		from, to := stop.From, stop.To
		rec.StopFrom = &from
		rec.StopTo = &to
	default:
		return SeriesRecord{}, nil, fmt.Errorf("storage: unsupported stop condition %T", sr.Stop)
	}

	templates := make([]TemplateRecord, len(sr.Template))
	for i, ev := range sr.Template {
		tmpl := TemplateRecord{
			SeriesID:    sr.ID,
			Position:    i,
			ID:          ev.ID,
			Name:        ev.Name,
			Description: ev.Description,
			EndAt:       ev.End,
		}
		if ev.Start != nil {
			start := *ev.Start
			tmpl.StartAt = &start
		}
		templates[i] = tmpl
	}
	return rec, templates, nil
}

func recordToStop(rec SeriesRecord) (model.StopCondition, error) {
	switch rec.StopKind {
	case stopKindCount:
		return model.FixedCount{Count: rec.StopCount}, nil
	case stopKindInterval:
		if rec.StopFrom == nil || rec.StopTo == nil {
			return nil, fmt.Errorf("storage: series %s interval stop is missing bounds", rec.ID)
		}
		return model.Interval{From: *rec.StopFrom, To: *rec.StopTo}, nil
	default:
		return nil, fmt.Errorf("storage: series %s has unknown stop kind %q", rec.ID, rec.StopKind)
	}
}

func templateToEvent(tmpl TemplateRecord) model.Event {
	ev := model.Event{
		ID:          tmpl.ID,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		End:         tmpl.EndAt,
	}
	if tmpl.StartAt != nil {
		start := *tmpl.StartAt
		ev.Start = &start
	}
	return ev
}

func instanceToRecord(seriesID string, cycleAt time.Time, position int, ev model.Event) InstanceRecord {
	rec := InstanceRecord{
		SeriesID:    seriesID,
		CycleAt:     cycleAt,
		Position:    position,
		ID:          ev.ID,
		Name:        ev.Name,
		Description: ev.Description,
		EndAt:       ev.End,
	}
	if ev.Start != nil {
		start := *ev.Start
		rec.StartAt = &start
	}
	return rec
}

func instanceToEvent(inst InstanceRecord) model.Event {
	ev := model.Event{
		ID:          inst.ID,
		Name:        inst.Name,
		Description: inst.Description,
		End:         inst.EndAt,
		SeriesID:    inst.SeriesID,
	}
	if inst.StartAt != nil {
		start := *inst.StartAt
		ev.Start = &start
	}
	return ev
}

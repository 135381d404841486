// Package recurrence expands authored event cycles into concrete recurring
// instances and keeps each series consistent when any instance is added,
// removed or changed. It subscribes to the event store's notification bus,
// so edits flowing through the store repair the owning series before the
// mutating call returns.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"plannerd/internal/model"
	"plannerd/internal/store"
)

var (
	// ErrSeriesNotFound reports a repair request against an unknown series.
	// An event must never carry a back-reference to a series that does not
	// exist; callers treat this error as an unrecoverable invariant
	// violation.
	ErrSeriesNotFound = errors.New("recurrence: series not found")

	ErrInstanceNotFound = errors.New("recurrence: series instance not found")
)

// Engine owns the mapping from series identifier to its template and the
// derived cycle-start-to-instances map. Series structures hold event
// identifiers and copies only; the store remains the arena for authored
// events.
type Engine struct {
	store  *store.Store
	series map[string]model.Series
	period map[string]time.Duration
	cycles map[string]map[time.Time][]model.Event

	// muted suppresses notification handling while the engine itself is
	// writing through the store, so repair cannot re-enter.
	muted bool
}

// New wires an engine to the store: it registers as an observer and as the
// store's instance source.
func New(s *store.Store) *Engine {
	e := &Engine{
		store:  s,
		series: make(map[string]model.Series),
		period: make(map[string]time.Duration),
		cycles: make(map[string]map[time.Time][]model.Event),
	}
	s.AddObserver(e)
	s.SetInstanceSource(e)
	return e
}

// AddSeries commits a new recurring series. The template is one authored
// cycle, time-ordered internally; cycleLength is the number of events per
// generated cycle (the template may carry one extra trailing event that only
// marks the next cycle's start and thus fixes the cycle period). Template
// events keep their identifiers in the first generated cycle; all later
// instances receive fresh identifiers. Every instance is stamped with the
// series back-reference.
func (e *Engine) AddSeries(template []model.Event, cycleLength int, stop model.StopCondition) (model.Series, error) {
	s := model.Series{
		ID:          e.store.NewID(),
		Template:    store.TimeOrder(template),
		CycleLength: cycleLength,
		Stop:        stop,
	}
	if err := s.Validate(); err != nil {
		return model.Series{}, err
	}

	period := s.Period()
	cycle := make([]model.Event, cycleLength)
	for i, tmpl := range s.Template[:cycleLength] {
		ev := tmpl.Clone()
		ev.SeriesID = s.ID
		cycle[i] = ev
	}

	flat := e.expand(cycle, period, stop, s.ID)
	e.series[s.ID] = s
	e.period[s.ID] = period
	e.cycles[s.ID] = IndexByCycleStart(flat, cycleLength)

	// Stamp the back-reference on authored events resident in the store.
	err := e.mutedDo(func() error {
		for _, tmpl := range s.Template[:cycleLength] {
			if e.store.Contains(tmpl.ID) {
				if stampErr := e.store.SetSeriesRef(tmpl.ID, s.ID); stampErr != nil {
					return stampErr
				}
			}
		}
		return nil
	})
	if err != nil {
		return model.Series{}, err
	}
	return s, nil
}

// Hydrate restores a previously committed series together with its generated
// cycles, as captured by a persistence snapshot. The cycle period is
// recomputed from the unchanged template; cycles reshaped by earlier repairs
// are installed verbatim rather than re-expanded.
func (e *Engine) Hydrate(s model.Series, cycles map[time.Time][]model.Event) error {
	if err := s.Validate(); err != nil {
		return err
	}
	restored := make(map[time.Time][]model.Event, len(cycles))
	for key, cycle := range cycles {
		restored[key] = append([]model.Event(nil), cycle...)
	}
	e.series[s.ID] = s
	e.period[s.ID] = s.Period()
	e.cycles[s.ID] = restored

	return e.mutedDo(func() error {
		for _, cycle := range restored {
			for _, ev := range cycle {
				if e.store.Contains(ev.ID) {
					if err := e.store.SetSeriesRef(ev.ID, s.ID); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// RemoveSeries invalidates a whole series. Member back-references are cleared
// first so no event is left pointing at a missing series.
func (e *Engine) RemoveSeries(id string) error {
	if _, ok := e.series[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSeriesNotFound, id)
	}
	err := e.mutedDo(func() error {
		for _, cycle := range e.cycles[id] {
			for _, ev := range cycle {
				if e.store.Contains(ev.ID) {
					if err := e.store.SetSeriesRef(ev.ID, ""); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	delete(e.series, id)
	delete(e.period, id)
	delete(e.cycles, id)
	return err
}

// Series returns the authored template for a series identifier.
func (e *Engine) Series(id string) (model.Series, error) {
	s, ok := e.series[id]
	if !ok {
		return model.Series{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, id)
	}
	return s, nil
}

// AllSeries returns every registered series, ordered by identifier.
func (e *Engine) AllSeries() []model.Series {
	out := make([]model.Series, 0, len(e.series))
	for _, s := range e.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SeriesEvents returns every generated instance of one series in
// chronological order.
func (e *Engine) SeriesEvents(id string) ([]model.Event, error) {
	cycles, ok := e.cycles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, id)
	}
	var flat []model.Event
	for _, cycle := range cycles {
		flat = append(flat, cycle...)
	}
	return store.TimeOrder(flat), nil
}

// Cycles returns the derived cycle-start-to-instances map for a series.
func (e *Engine) Cycles(id string) (map[time.Time][]model.Event, error) {
	cycles, ok := e.cycles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, id)
	}
	out := make(map[time.Time][]model.Event, len(cycles))
	for key, cycle := range cycles {
		out[key] = append([]model.Event(nil), cycle...)
	}
	return out, nil
}

// Instances returns every instance of every active series. It implements
// store.InstanceSource for full-schedule queries.
func (e *Engine) Instances() []model.Event {
	var out []model.Event
	for id := range e.cycles {
		events, _ := e.SeriesEvents(id)
		out = append(out, events...)
	}
	return out
}

// Notify implements store.Observer: a mutation of any event carrying a
// series back-reference triggers repair of that series.
func (e *Engine) Notify(op store.Operation, ev model.Event, _ *store.Store) error {
	if e.muted || ev.SeriesID == "" {
		return nil
	}
	return e.repair(op, ev)
}

// ChangeInstance repairs a series after an in-place edit of one of its
// generated instances (including instances not resident in the store).
func (e *Engine) ChangeInstance(ev model.Event) error {
	if ev.SeriesID == "" {
		return fmt.Errorf("%w: event %s has no series", ErrInstanceNotFound, ev.ID)
	}
	return e.repair(store.OpChange, ev)
}

// AddInstance inserts an event into its series' cycle and repairs forward.
func (e *Engine) AddInstance(ev model.Event) error {
	if ev.SeriesID == "" {
		return fmt.Errorf("%w: event %s has no series", ErrInstanceNotFound, ev.ID)
	}
	return e.repair(store.OpAdd, ev)
}

// RemoveInstance deletes one generated instance and repairs the series so
// the remaining future cycles no longer contain its slot.
func (e *Engine) RemoveInstance(id string) error {
	for seriesID, cycles := range e.cycles {
		for _, cycle := range cycles {
			for _, ev := range cycle {
				if ev.ID == id {
					ev.SeriesID = seriesID
					return e.repair(store.OpRemove, ev)
				}
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
}

// repair implements the incremental-update protocol: find the edited cycle,
// rebuild it with the edit applied, discard every derived cycle from the
// anchor forward and re-expand using the edited cycle as the new template
// under the rebased stop condition. Cycles strictly before the anchor are
// never touched.
func (e *Engine) repair(op store.Operation, changed model.Event) error {
	s, ok := e.series[changed.SeriesID]
	if !ok {
		return fmt.Errorf("%w: %s (event %s)", ErrSeriesNotFound, changed.SeriesID, changed.ID)
	}
	cycles := e.cycles[s.ID]

	oldKey, oldCycle, found := findCycle(cycles, changed.ID)
	if !found {
		if op != store.OpAdd {
			return fmt.Errorf("%w: %s in series %s", ErrInstanceNotFound, changed.ID, s.ID)
		}
		oldKey, oldCycle = cycleCovering(cycles, changed.EffectiveStart())
	}

	newCycle := rebuildCycle(oldCycle, op, changed)
	if len(newCycle) == 0 {
		// Sole event of the cycle removed: the series keeps its past and
		// loses everything from this cycle on.
		dropFrom(cycles, oldKey)
		return nil
	}

	anchor := newCycle[0].EffectiveStart()
	threshold := anchor
	if oldKey.Before(threshold) {
		threshold = oldKey
	}
	before := countBefore(cycleKeys(cycles), threshold)
	dropFrom(cycles, threshold)

	stop := s.Stop.Rebase(anchor, before)
	flat := e.expand(newCycle, e.period[s.ID], stop, s.ID)
	for key, cycle := range IndexByCycleStart(flat, len(newCycle)) {
		cycles[key] = cycle
	}
	return nil
}

// expand materializes cycles by repeating the cycle's relative offsets at
// every start the stop condition yields. The cycle whose start matches the
// template keeps the template identifiers; every shifted instance gets a
// fresh identifier.
func (e *Engine) expand(cycle []model.Event, period time.Duration, stop model.StopCondition, seriesID string) []model.Event {
	first := cycle[0].EffectiveStart()
	next := stop.Sequence(first, period)

	var flat []model.Event
	for start, ok := next(); ok; start, ok = next() {
		offset := start.Sub(first)
		for _, tmpl := range cycle {
			ev := tmpl.Clone()
			ev.SeriesID = seriesID
			if offset != 0 {
				ev.ID = e.store.NewID()
				if ev.Start != nil {
					shifted := ev.Start.Add(offset)
					ev.Start = &shifted
				}
				ev.End = ev.End.Add(offset)
			}
			flat = append(flat, ev)
		}
	}
	return flat
}

func (e *Engine) mutedDo(fn func() error) error {
	e.muted = true
	defer func() { e.muted = false }()
	return fn()
}

// IndexByCycleStart groups a flat expansion into chunks of cycleLength and
// keys each chunk by its first event's effective start. The final chunk may
// be shorter when the expansion does not divide evenly.
func IndexByCycleStart(flat []model.Event, cycleLength int) map[time.Time][]model.Event {
	out := make(map[time.Time][]model.Event)
	for i := 0; i < len(flat); i += cycleLength {
		end := i + cycleLength
		if end > len(flat) {
			end = len(flat)
		}
		chunk := append([]model.Event(nil), flat[i:end]...)
		out[chunk[0].EffectiveStart()] = chunk
	}
	return out
}

func findCycle(cycles map[time.Time][]model.Event, eventID string) (time.Time, []model.Event, bool) {
	for key, cycle := range cycles {
		for _, ev := range cycle {
			if ev.ID == eventID {
				return key, cycle, true
			}
		}
	}
	return time.Time{}, nil, false
}

// cycleCovering picks the cycle an added event lands in: the latest cycle
// whose key is not after the event's effective start, else the earliest.
func cycleCovering(cycles map[time.Time][]model.Event, at time.Time) (time.Time, []model.Event) {
	keys := cycleKeys(cycles)
	if len(keys) == 0 {
		return time.Time{}, nil
	}
	chosen := keys[0]
	for _, key := range keys {
		if key.After(at) {
			break
		}
		chosen = key
	}
	return chosen, cycles[chosen]
}

func rebuildCycle(cycle []model.Event, op store.Operation, changed model.Event) []model.Event {
	out := make([]model.Event, 0, len(cycle)+1)
	for _, ev := range cycle {
		if ev.ID == changed.ID {
			continue
		}
		out = append(out, ev)
	}
	if op != store.OpRemove {
		out = append(out, changed.Clone())
	}
	return store.TimeOrder(out)
}

func cycleKeys(cycles map[time.Time][]model.Event) []time.Time {
	keys := make([]time.Time, 0, len(cycles))
	for key := range cycles {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func countBefore(keys []time.Time, threshold time.Time) int {
	n := 0
	for _, key := range keys {
		if key.Before(threshold) {
			n++
		}
	}
	return n
}

func dropFrom(cycles map[time.Time][]model.Event, threshold time.Time) {
	for key := range cycles {
		if !key.Before(threshold) {
			delete(cycles, key)
		}
	}
}

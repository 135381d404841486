package worksession

import (
	"sort"
	"time"

	"plannerd/internal/store"
)

// MorningPerson prefers the earliest slot of each day: slots are ranked by
// start-of-day first, then by time of day, so mornings fill before
// afternoons.
type MorningPerson struct{}

func (MorningPerson) Name() string { return "morning person" }

func (MorningPerson) Order(_ string, _ *store.Store, _ time.Duration, slots []Slot) []Slot {
	out := append([]Slot(nil), slots...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Procrastinator pushes work as close to the deadline as it will go: later
// days come first, and within a day later slots come first.
type Procrastinator struct{}

func (Procrastinator) Name() string { return "procrastinator" }

func (Procrastinator) Order(_ string, _ *store.Store, _ time.Duration, slots []Slot) []Slot {
	out := append([]Slot(nil), slots...)
	sort.SliceStable(out, func(i, j int) bool { return out[j].Start.Before(out[i].Start) })
	return out
}

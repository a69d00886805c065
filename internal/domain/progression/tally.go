package progression

import "github.com/okian/ascend/internal/domain/model"

// Tally is the incremental fold over the event log: running counts per
// recognized event type. Unknown types are counted separately and never
// satisfy a requirement.
type Tally struct {
	counts  map[model.EventType]int
	ignored int
	total   int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[model.EventType]int)}
}

// Add folds one event into the tally. It reports whether the event's type
// is recognized.
func (t *Tally) Add(ev model.TourEvent) bool {
	t.total++
	if !ev.Type.Known() {
		t.ignored++
		return false
	}
	t.counts[ev.Type]++
	return true
}

// Count returns how many events of typ were folded.
func (t *Tally) Count(typ model.EventType) int { return t.counts[typ] }

// Total returns the number of folded events, recognized or not.
func (t *Tally) Total() int { return t.total }

// Ignored returns the number of folded events with unrecognized types.
func (t *Tally) Ignored() int { return t.ignored }

// Counts returns a copy of the per-type counts.
func (t *Tally) Counts() map[model.EventType]int {
	out := make(map[model.EventType]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Satisfied returns the levels whose criteria hold for the folded counts.
func (t *Tally) Satisfied(criteria Criteria) LevelSet {
	var s LevelSet
	for _, cr := range criteria {
		if cr.met(t.counts) {
			s = s.With(cr.Level)
		}
	}
	return s
}

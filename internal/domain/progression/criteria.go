// Package progression evaluates level-unlock criteria against the event log.
//
// Every predicate is a lower bound on an event count, so appending events can
// only grow the satisfied set. The evaluator reads event kinds only; metadata
// and timestamps never influence unlocks.
package progression

import (
	"fmt"

	"github.com/okian/ascend/internal/domain/model"
)

// Requirement is satisfied once at least Min events of Type were recorded.
type Requirement struct {
	Type model.EventType `koanf:"type" json:"type"`
	Min  int             `koanf:"min" json:"min"`
}

// Criterion gates one level. All AllOf requirements must hold, and at least
// one AnyOf requirement when AnyOf is non-empty.
type Criterion struct {
	Level int           `koanf:"level" json:"level"`
	AllOf []Requirement `koanf:"all_of" json:"all_of,omitempty"`
	AnyOf []Requirement `koanf:"any_of" json:"any_of,omitempty"`
}

// Criteria is the full per-level rule set.
type Criteria []Criterion

// DefaultCriteria returns the built-in thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		{Level: 1, AllOf: []Requirement{{Type: model.EventJobViewed, Min: 1}}},
		{Level: 2, AnyOf: []Requirement{
			{Type: model.EventMultiJobSubmission, Min: 1},
			{Type: model.EventPlacementMade, Min: 1},
		}},
		{Level: 3, AllOf: []Requirement{{Type: model.EventCandidateSubmitted, Min: 3}}},
		{Level: 4, AllOf: []Requirement{
			{Type: model.EventOutreachConfigured, Min: 1},
			{Type: model.EventCandidateAdded, Min: 5},
		}},
		{Level: 5, AllOf: []Requirement{
			{Type: model.EventPlacementMade, Min: 1},
			{Type: model.EventAnalyticsViewed, Min: 1},
		}},
	}
}

// Validate rejects rule sets that could break monotonic evaluation or
// reference levels and event kinds outside the recognized set.
func (c Criteria) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no criteria", ErrInvalidCriteria)
	}
	seen := make(map[int]struct{}, len(c))
	for _, cr := range c {
		if !model.ValidLevel(cr.Level) {
			return fmt.Errorf("%w: level %d out of range", ErrInvalidCriteria, cr.Level)
		}
		if _, dup := seen[cr.Level]; dup {
			return fmt.Errorf("%w: duplicate level %d", ErrInvalidCriteria, cr.Level)
		}
		seen[cr.Level] = struct{}{}
		if len(cr.AllOf) == 0 && len(cr.AnyOf) == 0 {
			return fmt.Errorf("%w: level %d has no requirements", ErrInvalidCriteria, cr.Level)
		}
		for _, req := range append(append([]Requirement{}, cr.AllOf...), cr.AnyOf...) {
			if !req.Type.Known() {
				return fmt.Errorf("%w: level %d references unknown event type %q", ErrInvalidCriteria, cr.Level, req.Type)
			}
			if req.Min < 1 {
				return fmt.Errorf("%w: level %d requires min >= 1 for %q", ErrInvalidCriteria, cr.Level, req.Type)
			}
		}
	}
	return nil
}

func (r Requirement) met(counts map[model.EventType]int) bool {
	return counts[r.Type] >= r.Min
}

func (cr Criterion) met(counts map[model.EventType]int) bool {
	for _, req := range cr.AllOf {
		if !req.met(counts) {
			return false
		}
	}
	if len(cr.AnyOf) == 0 {
		return true
	}
	for _, req := range cr.AnyOf {
		if req.met(counts) {
			return true
		}
	}
	return false
}

// Evaluate rescans events and returns the satisfied levels. It matches
// folding the same events into a Tally.
func Evaluate(criteria Criteria, events []model.TourEvent) LevelSet {
	t := NewTally()
	for _, ev := range events {
		t.Add(ev)
	}
	return t.Satisfied(criteria)
}

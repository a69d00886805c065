package testevents

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
	"github.com/okian/ascend/internal/domain/model"
)

// scenarios are scripted against the default unlock criteria on a fresh
// installation, where level 1 is available before any event.
var scenarios = map[string][]Step{
	// One multi-job submission is enough for level 2.
	"multi-job": {
		{Type: model.EventMultiJobSubmission, Expect: 2},
	},
	// Only the third candidate submission crosses level 3.
	"candidate-streak": {
		{Type: model.EventCandidateSubmitted},
		{Type: model.EventCandidateSubmitted},
		{Type: model.EventCandidateSubmitted, Expect: 3},
	},
	// Every level in order.
	"full-tour": {
		{Type: model.EventJobViewed},
		{Type: model.EventMultiJobSubmission, Expect: 2},
		{Type: model.EventCandidateSubmitted},
		{Type: model.EventCandidateSubmitted},
		{Type: model.EventCandidateSubmitted, Expect: 3},
		{Type: model.EventOutreachConfigured},
		{Type: model.EventCandidateAdded},
		{Type: model.EventCandidateAdded},
		{Type: model.EventCandidateAdded},
		{Type: model.EventCandidateAdded},
		{Type: model.EventCandidateAdded, Expect: 4},
		{Type: model.EventPlacementMade},
		{Type: model.EventAnalyticsViewed, Expect: 5},
	},
	// Level 5 criteria met before levels 3 and 4: only 5 surfaces.
	"skip-ahead": {
		{Type: model.EventPlacementMade, Expect: 2},
		{Type: model.EventAnalyticsViewed, Expect: 5},
		{Type: model.EventCandidateSubmitted},
		{Type: model.EventCandidateSubmitted},
		{Type: model.EventCandidateSubmitted},
	},
}

var burstTypes = []model.EventType{
	model.EventJobViewed,
	model.EventCandidateSubmitted,
	model.EventMultiJobSubmission,
	model.EventCandidateAdded,
	model.EventPlacementMade,
	model.EventOutreachConfigured,
	model.EventAnalyticsViewed,
}

// Scenarios returns the names of the scripted tours, sorted.
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Script returns a copy of the steps of the named tour.
func Script(name string) ([]Step, error) {
	steps, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out, nil
}

// highestExpected is the level the tour must end on at least.
func highestExpected(steps []Step) int {
	highest := model.MinLevel
	for _, s := range steps {
		if s.Expect > highest {
			highest = s.Expect
		}
	}
	return highest
}

// generateBurst creates n events of random recognized kinds, each with its
// own request_id.
func generateBurst(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		t := burstTypes[rand.IntN(len(burstTypes))]
		events[i] = Event{
			Type:      string(t),
			Metadata:  map[string]any{"source": "simulate", "seq": i},
			RequestID: uuid.New().String(),
		}
	}
	return events
}

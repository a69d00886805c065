// Package model contains domain models passed between layers.
package model

import "time"

// Level bounds of the tour progression.
const (
	MinLevel = 1
	MaxLevel = 5
)

// EventType names a recorded user action.
type EventType string

// Recognized event types. Only these contribute to unlock criteria.
const (
	EventJobViewed          EventType = "job-viewed"
	EventCandidateSubmitted EventType = "candidate-submitted"
	EventMultiJobSubmission EventType = "multi-job-submission"
	EventCandidateAdded     EventType = "candidate-added"
	EventPlacementMade      EventType = "placement-made"
	EventOutreachConfigured EventType = "outreach-configured"
	EventAnalyticsViewed    EventType = "analytics-viewed"
)

var knownEventTypes = map[EventType]struct{}{
	EventJobViewed:          {},
	EventCandidateSubmitted: {},
	EventMultiJobSubmission: {},
	EventCandidateAdded:     {},
	EventPlacementMade:      {},
	EventOutreachConfigured: {},
	EventAnalyticsViewed:    {},
}

// Known reports whether t belongs to the recognized set.
func (t EventType) Known() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// KnownEventTypes returns the recognized set in a stable order.
func KnownEventTypes() []EventType {
	return []EventType{
		EventJobViewed,
		EventCandidateSubmitted,
		EventMultiJobSubmission,
		EventCandidateAdded,
		EventPlacementMade,
		EventOutreachConfigured,
		EventAnalyticsViewed,
	}
}

// TourEvent is one recorded user action. Events are immutable once appended.
type TourEvent struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UnlockRecord stores the first time a level was reached.
type UnlockRecord struct {
	Level      int       `json:"level"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// UnlockNotice is emitted when a level is newly surfaced to the user.
type UnlockNotice struct {
	InstallationID string    `json:"installation_id"`
	Level          int       `json:"level"`
	UnlockedAt     time.Time `json:"unlocked_at"`
}

// LevelState is the derived per-level view.
type LevelState string

// Level states.
const (
	LevelLocked    LevelState = "locked"
	LevelAvailable LevelState = "available"
	LevelCompleted LevelState = "completed"
)

// ValidLevel reports whether level is within MinLevel..MaxLevel.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

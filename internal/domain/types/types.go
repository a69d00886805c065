// Package types contains the read shapes shared by the service, the HTTP API
// and the CLI.
package types

import "time"

// EventResult is the outcome of submitting one tour event.
type EventResult struct {
	HighestAvailableLevel int  `json:"highest_available_level"`
	UnlockedLevel         *int `json:"unlocked_level,omitempty"`
	Duplicate             bool `json:"duplicate"`
}

// LevelView is the derived state of one level.
type LevelView struct {
	Level int    `json:"level"`
	State string `json:"state"`
}

// Progress is the full progression view of an installation.
type Progress struct {
	HighestAvailableLevel int         `json:"highest_available_level"`
	CompletedLevels       []int       `json:"completed_levels"`
	ViewedLevels          []int       `json:"viewed_levels"`
	Levels                []LevelView `json:"levels"`
	Notification          *int        `json:"notification,omitempty"`
}

// Badge is a catalog entry joined with its unlock state.
type Badge struct {
	Level       int        `json:"level"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Rarity      string     `json:"rarity"`
	Points      int        `json:"points"`
	Color       string     `json:"color"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// BadgeBoard lists every badge with the points earned so far.
type BadgeBoard struct {
	Badges       []Badge `json:"badges"`
	EarnedPoints int     `json:"earned_points"`
	TotalPoints  int     `json:"total_points"`
}

// Snapshot is the offline inspection view of stored progression.
type Snapshot struct {
	InstallationID        string         `json:"installation_id"`
	TotalEvents           int            `json:"total_events"`
	IgnoredEvents         int            `json:"ignored_events"`
	EventsByType          map[string]int `json:"events_by_type"`
	SatisfiedLevels       []int          `json:"satisfied_levels"`
	HighestAvailableLevel int            `json:"highest_available_level"`
	Unlocks               []Unlock       `json:"unlocks"`
}

// Unlock is one persisted first-unlock record.
type Unlock struct {
	Level      int       `json:"level"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Package testevents drives a running ascend server through scripted tours
// and bursts of concurrent submissions, verifying the unlocks it reports.
package testevents

import (
	"time"

	"github.com/okian/ascend/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Scenario   string        // Name of the scripted tour to play
	Burst      int           // Number of random events submitted concurrently after the tour
	Duplicates int           // Number of burst events resubmitted with the same request_id
	Workers    int           // Number of concurrent workers for the burst
	Timeout    time.Duration // HTTP request timeout
	AllowDirty bool          // Play against an installation that already has events
	Verbose    bool          // Log every step
}

// Step is one scripted submission and the unlock it must report.
// Expect is zero when the submission must not surface a level.
type Step struct {
	Type   model.EventType
	Expect int
}

// Event is the body of POST /events.
type Event struct {
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	StepsPlayed       int
	StepsVerified     int
	Unlocks           []int
	EventsSubmitted   int
	EventsSuccessful  int
	EventsDuplicate   int
	EventsFailed      int
	FinalHighestLevel int
	RecentlyUnlocked  bool
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

const (
	// DefaultScenario is played when Config.Scenario is empty.
	DefaultScenario = "full-tour"

	defaultTimeout = 30 * time.Second
	defaultWorkers = 4
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.Scenario == "" {
		out.Scenario = DefaultScenario
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	if out.Workers <= 0 {
		out.Workers = defaultWorkers
	}
	if out.Duplicates > out.Burst {
		out.Duplicates = out.Burst
	}
	if out.Duplicates < 0 {
		out.Duplicates = 0
	}
	return out
}

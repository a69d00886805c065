package testevents

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ascend/pkg/logger"
)

// Run plays the configured scenario against the server, then the optional
// burst, and verifies the resulting progression.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	steps, err := Script(cfg.Scenario)
	if err != nil {
		return stats, err
	}

	log.Info(ctx, "starting ascend simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("scenario", cfg.Scenario),
		logger.Int("burst", cfg.Burst),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Refuse to script against existing history
	var st statsResponse
	if err := client.getJSON(ctx, "/stats", &st); err != nil {
		return stats, err
	}
	if st.TotalEvents > 0 && !cfg.AllowDirty {
		return stats, fmt.Errorf("%w: %d events recorded", ErrDirtyInstallation, st.TotalEvents)
	}
	verifySteps := st.TotalEvents == 0

	// Step 3: Play the script in order
	for i, step := range steps {
		res, err := client.postEvent(ctx, Event{
			Type:     string(step.Type),
			Metadata: map[string]any{"source": "simulate", "scenario": cfg.Scenario, "step": i + 1},
		})
		stats.StepsPlayed++
		if err != nil {
			return stats, err
		}
		if res.UnlockedLevel != nil {
			stats.Unlocks = append(stats.Unlocks, *res.UnlockedLevel)
		}
		if cfg.Verbose {
			log.Info(ctx, "step played",
				logger.Int("step", i+1),
				logger.String("type", string(step.Type)),
				logger.Int("highest", res.HighestAvailableLevel),
				logger.Any("unlocked", res.UnlockedLevel))
		}
		if verifySteps {
			if err := verifyStep(i, step, res); err != nil {
				return stats, err
			}
			stats.StepsVerified++
		}
	}

	// Step 4: Concurrent burst with retried request ids
	if cfg.Burst > 0 {
		events := generateBurst(cfg.Burst)
		submitBurst(ctx, client, cfg.Workers, events, stats)
		if cfg.Duplicates > 0 {
			before := stats.EventsDuplicate
			submitBurst(ctx, client, cfg.Workers, events[:cfg.Duplicates], stats)
			if got := stats.EventsDuplicate - before; got != cfg.Duplicates {
				return stats, fmt.Errorf("%w: %d of %d retries flagged as duplicate", ErrVerification, got, cfg.Duplicates)
			}
		}
	}

	// Step 5: Verify the final view
	if err := verifyFinal(ctx, client, steps, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.StepsPlayed+stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("stepsPlayed", stats.StepsPlayed),
		logger.Int("stepsVerified", stats.StepsVerified),
		logger.Any("unlocks", stats.Unlocks),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("finalHighestLevel", stats.FinalHighestLevel),
		logger.Bool("recentlyUnlocked", stats.RecentlyUnlocked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}

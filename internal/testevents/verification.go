package testevents

import (
	"context"
	"fmt"

	"github.com/okian/ascend/internal/domain/types"
	"github.com/okian/ascend/pkg/logger"
)

type statsResponse struct {
	TotalEvents int `json:"totalEvents"`
}

type recentResponse struct {
	RecentlyUnlocked bool `json:"recently_unlocked"`
}

// verifyStep compares the unlock a submission reported with the script.
func verifyStep(i int, step Step, res types.EventResult) error {
	got := 0
	if res.UnlockedLevel != nil {
		got = *res.UnlockedLevel
	}
	if got != step.Expect {
		return fmt.Errorf("%w: step %d (%s) reported %d, want %d", ErrUnexpectedUnlock, i+1, step.Type, got, step.Expect)
	}
	return nil
}

// verifyFinal checks the progression view and badge board after the run.
func verifyFinal(ctx context.Context, client *HTTPClient, steps []Step, stats *Stats) error {
	var progress types.Progress
	if err := client.getJSON(ctx, "/progress", &progress); err != nil {
		return err
	}
	stats.FinalHighestLevel = progress.HighestAvailableLevel

	want := highestExpected(steps)
	if progress.HighestAvailableLevel < want {
		return fmt.Errorf("%w: highest available level %d, want at least %d", ErrVerification, progress.HighestAvailableLevel, want)
	}

	var board types.BadgeBoard
	if err := client.getJSON(ctx, "/badges", &board); err != nil {
		return err
	}
	for _, level := range stats.Unlocks {
		if level < 1 || level > len(board.Badges) || !board.Badges[level-1].Unlocked {
			return fmt.Errorf("%w: badge for level %d is not unlocked", ErrVerification, level)
		}
	}

	var recent recentResponse
	if err := client.getJSON(ctx, "/badges/recent", &recent); err != nil {
		return err
	}
	stats.RecentlyUnlocked = recent.RecentlyUnlocked
	if len(stats.Unlocks) > 0 && !recent.RecentlyUnlocked {
		logger.Get().Warn(ctx, "unlocks were reported but none is recent; the run outlasted the recent window")
	}
	return nil
}

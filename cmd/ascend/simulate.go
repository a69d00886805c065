package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/ascend/internal/testevents"
	"github.com/spf13/cobra"
)

const defaultSimulateTimeout = 10 * time.Minute

func newSimulateCmd() *cobra.Command {
	cfg := testevents.Config{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running server through a scripted tour and verify the unlocks",
		Long: "Play a scripted tour against a running ascend server, optionally followed by a concurrent burst " +
			"with retried request ids, then verify the progression and badge views.\n\nScenarios: " +
			strings.Join(testevents.Scenarios(), ", "),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultSimulateTimeout)
			defer cancel()

			stats, err := testevents.Run(ctx, &cfg)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"scenario %s: %d steps, unlocks %v, highest level %d, burst %d ok / %d duplicate / %d failed\n",
				cfg.Scenario, stats.StepsPlayed, stats.Unlocks, stats.FinalHighestLevel,
				stats.EventsSuccessful, stats.EventsDuplicate, stats.EventsFailed)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.StringVar(&cfg.Scenario, "scenario", testevents.DefaultScenario, "Scripted tour to play")
	f.IntVar(&cfg.Burst, "burst", 0, "Number of random events submitted concurrently after the tour")
	f.IntVar(&cfg.Duplicates, "duplicates", 0, "Number of burst events retried with the same request_id")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.BoolVar(&cfg.AllowDirty, "allow-dirty", false, "Play against an installation that already has events")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every step")
	return cmd
}

// Package main provides the ascend binary: the tour progression server and
// its operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/okian/ascend/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logJSON    bool
	)

	root := &cobra.Command{
		Use:           "ascend",
		Short:         "Tour progression and achievement unlock engine",
		Long:          "ascend records onboarding tour actions, unlocks the five progression levels and serves the badge board over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				if err := os.Setenv("ASCEND_CONFIG", configPath); err != nil {
					return fmt.Errorf("set config path: %w", err)
				}
			}
			opts := []logger.Option{logger.WithWriter(cmd.ErrOrStderr())}
			if logJSON {
				opts = append(opts, logger.WithJSON())
			}
			if err := logger.Init(opts...); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides ASCEND_CONFIG)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON lines")

	root.AddCommand(newServeCmd(), newInspectCmd(), newSimulateCmd())
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"fmt"

	service "github.com/okian/ascend/internal/app"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the stored progression snapshot as JSON",
		Long:  "Open the configured storage and print events per type, satisfied levels and unlock records of the installation.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			st, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}

			opts := append(serviceOptions(cfg, st), service.WithWorkerCount(1))
			svc := service.New(opts...)
			if err := svc.Start(ctx); err != nil {
				_ = st.Close()
				return fmt.Errorf("failed to start service: %w", err)
			}
			defer svc.Stop()

			snap, err := svc.Snapshot(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on one line")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single evaluation cycle and exit",
		Long:  "check runs every evaluator once against live data, delivering any alerts it raises, and exits non-zero if an evaluator failed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, _, err := a.loadConfig(ctx, cmd, true)
			if err != nil {
				return err
			}
			logger, level, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := newService(cfg, logger, level)
			if err != nil {
				return err
			}
			defer svc.close()

			if err := svc.monitor.RunOnce(ctx); err != nil {
				return fmt.Errorf("cycle failed: %w", err)
			}
			entries := svc.gate.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "cycle complete: %d alert(s) dispatched\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s at %s\n", e.Key, e.LastAlert.Format(time.RFC3339))
			}
			return nil
		},
	}
	addTargetFlags(cmd, a)
	return cmd
}

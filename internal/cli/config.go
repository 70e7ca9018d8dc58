package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, mgr, err := a.loadConfig(ctx, cmd, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f := mgr.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "# source: %s\n", f)
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	addTargetFlags(show, a)

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
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
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			if !cfg.InsightEnabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "insight generation: disabled")
			}
			return nil
		},
	}
	addTargetFlags(validate, a)

	cmd.AddCommand(show, validate)
	return cmd
}

// Package cli implements the minio-anomaly-detector command tree.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyraxabir/minio-anomaly-detector/internal/config"
	"github.com/cyraxabir/minio-anomaly-detector/internal/version"
)

type app struct {
	configPath    string
	logLevel      string
	prometheusURL string
	webhookURL    string
	interval      time.Duration
}

// NewRootCommand returns the root command wired to the process streams.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "minio-anomaly-detector",
		Short:         "Detect anomalies in MinIO metrics and alert on Discord",
		Long:          "minio-anomaly-detector samples MinIO metrics from Prometheus, flags statistical anomalies and posts deduplicated alerts to a Discord webhook, optionally explained by an OpenWebUI model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}
	addTargetFlags(cmd, a)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultConfigPath, "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCmd(a),
		newCheckCmd(a),
		newQueryCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// addPrometheusFlag registers the metric source override.
func addPrometheusFlag(cmd *cobra.Command, a *app) {
	cmd.Flags().StringVar(&a.prometheusURL, "prometheus-url", "", "Prometheus base URL")
}

// addTargetFlags registers the flags shared by the commands that run cycles.
func addTargetFlags(cmd *cobra.Command, a *app) {
	addPrometheusFlag(cmd, a)
	cmd.Flags().StringVar(&a.webhookURL, "webhook-url", "", "Discord webhook URL")
	cmd.Flags().DurationVar(&a.interval, "interval", 0, "pause between evaluation cycles")
}

// loadConfig loads configuration, applying the flags the user actually set.
func (a *app) loadConfig(ctx context.Context, cmd *cobra.Command, validate bool) (*config.Config, config.ConfigManager, error) {
	mgr, err := config.NewConfigManager(a.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		mgr.Override("logging.level", a.logLevel)
	}
	if flags.Lookup("prometheus-url") != nil && flags.Changed("prometheus-url") {
		mgr.Override("prometheus.url", a.prometheusURL)
	}
	if flags.Lookup("webhook-url") != nil && flags.Changed("webhook-url") {
		mgr.Override("discord.webhook_url", a.webhookURL)
	}
	if flags.Lookup("interval") != nil && flags.Changed("interval") {
		mgr.Override("detection.check_interval_seconds", int(a.interval.Seconds()))
	}

	if err := mgr.Load(ctx); err != nil {
		return nil, nil, err
	}
	if validate {
		if err := mgr.Validate(ctx); err != nil {
			return nil, nil, err
		}
	}
	return mgr.Get(ctx), mgr, nil
}

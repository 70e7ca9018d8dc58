package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics/anomaly"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		window  time.Duration
		tail    int
		instant bool
	)
	cmd := &cobra.Command{
		Use:   "query <promql>",
		Short: "Fetch a series and show what the detectors make of it",
		Long:  "query runs a range query against Prometheus, prints the trailing samples and reports the z-score and rate-of-change verdicts using the configured thresholds. Nothing is sent to Discord.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, _, err := a.loadConfig(ctx, cmd, false)
			if err != nil {
				return err
			}
			client, err := newPrometheusClient(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			if instant {
				v, err := client.Instant(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%g\n", v)
				return nil
			}
			if window <= 0 {
				window = cfg.HistoryWindow()
			}

			series, err := client.Range(ctx, args[0], window)
			if err != nil {
				return err
			}
			values := series.Values()
			out := cmd.OutOrStdout()

			start := 0
			if tail > 0 && len(series.Points) > tail {
				start = len(series.Points) - tail
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIMESTAMP\tVALUE")
			for _, p := range series.Points[start:] {
				fmt.Fprintf(tw, "%s\t%g\n", p.Timestamp.UTC().Format(time.RFC3339), p.Value)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			stats := analytics.Describe(values)
			fmt.Fprintf(out, "\nsamples=%d mean=%.4g stddev=%.4g min=%.4g max=%.4g p95=%.4g\n",
				stats.Count, stats.Mean, stats.StdDev, stats.Min, stats.Max, stats.P95)

			z := anomaly.ZScore(values, cfg.Detection.ZScoreThreshold)
			fmt.Fprintf(out, "z-score:        %.3f (threshold %.2f, expected %.4g..%.4g) anomaly=%t\n",
				z.Score, cfg.Detection.ZScoreThreshold, z.Lower, z.Upper, z.IsAnomaly)
			roc := anomaly.RateOfChange(values, cfg.Detection.RoCThresholdPercent)
			fmt.Fprintf(out, "rate of change: %+.1f%% (threshold %.0f%%) anomaly=%t\n",
				roc.ChangePercent, cfg.Detection.RoCThresholdPercent, roc.IsAnomaly)
			return nil
		},
	}
	addPrometheusFlag(cmd, a)
	cmd.Flags().DurationVar(&window, "window", 0, "history window (defaults to detection.history_hours)")
	cmd.Flags().BoolVar(&instant, "instant", false, "run an instant query and print the current value only")
	cmd.Flags().IntVar(&tail, "tail", 10, "number of trailing samples to print (0 prints all)")
	return cmd
}

package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cyraxabir/minio-anomaly-detector/internal/server"
	"github.com/cyraxabir/minio-anomaly-detector/internal/tracing"
	"github.com/cyraxabir/minio-anomaly-detector/internal/version"
)

const serviceName = "minio-anomaly-detector"

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitoring loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}
	addTargetFlags(cmd, a)
	return cmd
}

func (a *app) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, mgr, err := a.loadConfig(ctx, cmd, true)
	if err != nil {
		return err
	}

	logger, level, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	svc, err := newService(cfg, logger, level)
	if err != nil {
		return err
	}
	defer svc.close()

	logger.Info("Starting MinIO anomaly detector",
		zap.String("version", version.Version),
		zap.String("config", mgr.ConfigFileUsed()),
		zap.String("prometheus_url", cfg.Prometheus.URL),
		zap.Duration("interval", cfg.CheckInterval()),
		zap.Duration("cooldown", cfg.AlertCooldown()),
		zap.Float64("z_score_threshold", cfg.Detection.ZScoreThreshold),
		zap.Float64("roc_threshold_percent", cfg.Detection.RoCThresholdPercent),
	)
	started := time.Now()
	_ = svc.audit.LogSystemStarted(ctx, version.Version)

	g, gctx := errgroup.WithContext(ctx)

	go svc.watch(gctx, mgr.Watch(gctx))

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.ListenAddress, svc.monitor, svc.gate, logger)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				logger.Error("Status server failed", zap.Error(err))
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		// a failing status server also stops the loop through gctx
		return svc.monitor.Run(gctx)
	})

	err = g.Wait()

	logger.Info("Shutting down", zap.Duration("uptime", time.Since(started)))
	_ = svc.audit.LogSystemStopped(context.WithoutCancel(ctx), time.Since(started))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

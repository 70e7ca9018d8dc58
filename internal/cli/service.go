package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/audit"
	"github.com/cyraxabir/minio-anomaly-detector/internal/config"
	"github.com/cyraxabir/minio-anomaly-detector/internal/evaluator"
	"github.com/cyraxabir/minio-anomaly-detector/internal/integration/prometheus"
	"github.com/cyraxabir/minio-anomaly-detector/internal/llm/insight"
	"github.com/cyraxabir/minio-anomaly-detector/internal/logging"
	"github.com/cyraxabir/minio-anomaly-detector/internal/monitor"
	"github.com/cyraxabir/minio-anomaly-detector/internal/notify/discord"
)

// service holds the assembled engine.
type service struct {
	logger   *zap.Logger
	level    zap.AtomicLevel
	audit    audit.Logger
	gate     *alert.Gate
	tunables *evaluator.Tunables
	monitor  *monitor.Monitor
}

func newLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	return logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}

func newAuditLogger(cfg *config.Config) (audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return audit.NewNopLogger(), nil
	}
	return audit.NewLogger(&audit.Config{
		Path:       cfg.Audit.Path,
		MaxSize:    cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAge:     cfg.Audit.MaxAgeDays,
		Compress:   cfg.Audit.Compress,
	})
}

func newPrometheusClient(cfg *config.Config, logger *zap.Logger) (*prometheus.Client, error) {
	return prometheus.NewClient(prometheus.Config{
		URL:     cfg.Prometheus.URL,
		Timeout: cfg.PrometheusTimeout(),
		Step:    cfg.PrometheusStep(),
	}, logger)
}

func thresholdsFrom(cfg *config.Config) evaluator.Thresholds {
	return evaluator.Thresholds{
		ZScore:       cfg.Detection.ZScoreThreshold,
		RateOfChange: cfg.Detection.RoCThresholdPercent,
		Window:       cfg.HistoryWindow(),
	}
}

// newService builds every collaborator from a validated config. The logger
// is owned by the caller; the audit journal is owned by the service.
func newService(cfg *config.Config, logger *zap.Logger, level zap.AtomicLevel) (*service, error) {
	source, err := newPrometheusClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("prometheus client: %w", err)
	}

	notifier, err := discord.NewNotifier(discord.Config{
		WebhookURL:    cfg.Discord.WebhookURL,
		Timeout:       cfg.DiscordTimeout(),
		RatePerMinute: cfg.Discord.RatePerMinute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("discord notifier: %w", err)
	}

	// Leave the interface nil when disabled; a typed nil would be called.
	var insights evaluator.InsightGenerator
	if cfg.InsightEnabled() {
		c, err := insight.NewClient(insight.Config{
			URL:         cfg.Insight.URL,
			APIKey:      cfg.Insight.APIKey,
			Model:       cfg.Insight.Model,
			Timeout:     cfg.InsightTimeout(),
			MaxChars:    cfg.Insight.MaxChars,
			Temperature: cfg.Insight.Temperature,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("insight client: %w", err)
		}
		insights = c
		logger.Info("Insight generation enabled", zap.String("url", cfg.Insight.URL), zap.String("model", cfg.Insight.Model))
	} else {
		logger.Warn("Insight generation disabled; alerts will carry statistical context only")
	}

	journal, err := newAuditLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("audit journal: %w", err)
	}

	gate := alert.NewGate(cfg.AlertCooldown(), nil)
	tunables := evaluator.NewTunables(thresholdsFrom(cfg))

	evaluators := evaluator.Default(&evaluator.Dependencies{
		Source:   source,
		Gate:     gate,
		Notifier: notifier,
		Insight:  insights,
		Tunables: tunables,
		Audit:    journal,
		Logger:   logger,
	})

	return &service{
		logger:   logger,
		level:    level,
		audit:    journal,
		gate:     gate,
		tunables: tunables,
		monitor:  monitor.New(evaluators, cfg.CheckInterval(), logger),
	}, nil
}

// apply pushes the hot-reloadable settings of cfg into the running engine and
// returns what changed.
func (s *service) apply(cfg *config.Config) map[string]interface{} {
	changes := make(map[string]interface{})

	next := thresholdsFrom(cfg)
	if prev := s.tunables.Get(); prev != next {
		s.tunables.Set(next)
		changes["detection.zscore_threshold"] = next.ZScore
		changes["detection.roc_threshold_percent"] = next.RateOfChange
		changes["detection.history_hours"] = cfg.Detection.HistoryHours
	}
	if d := cfg.AlertCooldown(); d != s.gate.Cooldown() {
		s.gate.SetCooldown(d)
		changes["detection.alert_cooldown_seconds"] = cfg.Detection.AlertCooldownSeconds
	}
	if d := cfg.CheckInterval(); d != s.monitor.Interval() {
		s.monitor.SetInterval(d)
		changes["detection.check_interval_seconds"] = cfg.Detection.CheckIntervalSeconds
	}
	if lvl, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil && lvl != s.level.Level() {
		s.level.SetLevel(lvl)
		changes["logging.level"] = cfg.Logging.Level
	}
	return changes
}

// watch applies config changes until ctx is done.
func (s *service) watch(ctx context.Context, updates <-chan config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			changes := s.apply(&cfg)
			if len(changes) == 0 {
				continue
			}
			s.logger.Info("Configuration reloaded", zap.Any("changes", changes))
			if err := s.audit.LogConfigReloaded(ctx, changes); err != nil {
				s.logger.Warn("Failed to journal config reload", zap.Error(err))
			}
		}
	}
}

func (s *service) close() {
	if err := s.audit.Close(); err != nil {
		s.logger.Warn("Failed to close audit journal", zap.Error(err))
	}
}

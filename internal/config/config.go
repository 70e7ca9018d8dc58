package config

import (
	"context"
	"time"
)

// Package config loads and validates the detector's configuration.
//
// Configuration Sources (priority order, high to low):
//   1. CLI flags (run/check overrides)
//   2. Environment variables (MINIO_ANOMALY_* prefix, "." replaced by "_"),
//      plus DISCORD_WEBHOOK, PROMETHEUS_URL and OPENWEBUI_* for compatibility
//   3. YAML config file (default: /etc/minio-anomaly-detector/config.yaml, optional)
//   4. Built-in defaults
//
// Only the detection section is hot-reloadable; everything else needs a restart.

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "/etc/minio-anomaly-detector/config.yaml"

// EnvPrefix prefixes every environment variable read by viper.
const EnvPrefix = "MINIO_ANOMALY"

// Config struct contains all configuration fields
type Config struct {
	// Prometheus metric source
	Prometheus struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		StepSeconds    int    `yaml:"step_seconds"`
	} `yaml:"prometheus"`

	// Discord webhook notifier
	Discord struct {
		WebhookURL     string `yaml:"webhook_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		RatePerMinute  int    `yaml:"rate_per_minute"`
	} `yaml:"discord"`

	// Insight (OpenWebUI) generator; disabled unless URL, key and model are set
	Insight struct {
		URL            string  `yaml:"url"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		MaxChars       int     `yaml:"max_chars"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"insight"`

	// Detection thresholds and loop timing
	Detection struct {
		CheckIntervalSeconds int     `yaml:"check_interval_seconds"`
		ZScoreThreshold      float64 `yaml:"zscore_threshold"`
		RoCThresholdPercent  float64 `yaml:"roc_threshold_percent"`
		AlertCooldownSeconds int     `yaml:"alert_cooldown_seconds"`
		HistoryHours         int     `yaml:"history_hours"`
	} `yaml:"detection"`

	// Logging configuration
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`

	// Alert journal
	Audit struct {
		Enabled    bool   `yaml:"enabled"`
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"audit"`

	// Status HTTP server
	Server struct {
		Enabled       bool   `yaml:"enabled"`
		ListenAddress string `yaml:"listen_address"`
	} `yaml:"server"`

	// OpenTelemetry export; empty endpoint disables it
	Tracing struct {
		Endpoint     string  `yaml:"endpoint"`
		SamplingRate float64 `yaml:"sampling_rate"`
	} `yaml:"tracing"`
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Override pins key to value above every other source. Call before Load.
	Override(key string, value interface{})

	// Watch delivers a fresh Config whenever the file changes.
	Watch(ctx context.Context) <-chan Config

	// Reload re-reads every source.
	Reload(ctx context.Context) error

	// ConfigFileUsed returns the file that was read, or "" when none was found.
	ConfigFileUsed() string
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		overrides:  make(map[string]interface{}),
		watchChan:  make(chan Config, 1),
	}, nil
}

// InsightEnabled reports whether every insight setting is present and none
// is a template placeholder.
func (c *Config) InsightEnabled() bool {
	for _, v := range []string{c.Insight.URL, c.Insight.APIKey, c.Insight.Model} {
		if v == "" || isPlaceholder(v) {
			return false
		}
	}
	return true
}

// redactedValue replaces secrets in printable copies of the config.
const redactedValue = "***REDACTED***"

// Redacted returns a copy safe to print: the webhook URL (whose path is the
// webhook token) and the insight API key are masked when set.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Discord.WebhookURL != "" {
		out.Discord.WebhookURL = redactedValue
	}
	if out.Insight.APIKey != "" {
		out.Insight.APIKey = redactedValue
	}
	return &out
}

// CheckInterval returns the pause between evaluation cycles.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Detection.CheckIntervalSeconds) * time.Second
}

// AlertCooldown returns the per-key alert spacing.
func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.Detection.AlertCooldownSeconds) * time.Second
}

// HistoryWindow returns the range query lookback.
func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.Detection.HistoryHours) * time.Hour
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// PrometheusTimeout returns the per-query timeout.
func (c *Config) PrometheusTimeout() time.Duration { return seconds(c.Prometheus.TimeoutSeconds) }

// PrometheusStep returns the range query resolution.
func (c *Config) PrometheusStep() time.Duration { return seconds(c.Prometheus.StepSeconds) }

// DiscordTimeout returns the webhook delivery timeout.
func (c *Config) DiscordTimeout() time.Duration { return seconds(c.Discord.TimeoutSeconds) }

// InsightTimeout returns the completion request timeout.
func (c *Config) InsightTimeout() time.Duration { return seconds(c.Insight.TimeoutSeconds) }

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// legacyEnv maps the variable names used by earlier deployments to config keys.
var legacyEnv = map[string]string{
	"DISCORD_WEBHOOK":   "discord.webhook_url",
	"PROMETHEUS_URL":    "prometheus.url",
	"OPENWEBUI_URL":     "insight.url",
	"OPENWEBUI_API_KEY": "insight.api_key",
	"OPENWEBUI_MODEL":   "insight.model",
}

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	overrides  map[string]interface{}
	watchChan  chan Config
	watchOnce  sync.Once

	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	fileUsed string
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	fileUsed, err := readConfigFile(v)
	if err != nil {
		return err
	}

	for key, value := range m.overrides {
		v.Set(key, value)
	}

	cfg := unmarshalConfig(v)
	m.applyEnvOverrides(cfg)

	m.mu.Lock()
	m.viper = v
	m.config = cfg
	m.fileUsed = fileUsed
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.Get(ctx).Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Override pins key to value above every other source.
func (m *viperConfigManager) Override(key string, value interface{}) {
	m.overrides[key] = value
}

// Watch watches the config file and delivers each successfully parsed version.
// Versions that fail validation are dropped.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.watchOnce.Do(func() {
		m.mu.RLock()
		v, fileUsed := m.viper, m.fileUsed
		m.mu.RUnlock()
		if v == nil || fileUsed == "" {
			return
		}

		v.OnConfigChange(func(e fsnotify.Event) {
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				return
			}
			cfg := unmarshalConfig(v)
			m.applyEnvOverrides(cfg)
			if len(cfg.Validate()) > 0 {
				return
			}

			m.mu.Lock()
			m.config = cfg
			m.mu.Unlock()

			select {
			case m.watchChan <- *cfg:
			default:
				// previous update not consumed yet
			}
		})
		v.WatchConfig()
	})
	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	return m.Load(ctx)
}

func (m *viperConfigManager) ConfigFileUsed() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fileUsed
}

// readConfigFile reads the YAML file if it exists. A missing file is not an error.
func readConfigFile(v *viper.Viper) (string, error) {
	err := v.ReadInConfig()
	if err == nil {
		return v.ConfigFileUsed(), nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return "", fmt.Errorf("error reading config file: %w", err)
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	// Prometheus defaults
	v.SetDefault("prometheus.url", defaults.Prometheus.URL)
	v.SetDefault("prometheus.timeout_seconds", defaults.Prometheus.TimeoutSeconds)
	v.SetDefault("prometheus.step_seconds", defaults.Prometheus.StepSeconds)

	// Discord defaults
	v.SetDefault("discord.webhook_url", defaults.Discord.WebhookURL)
	v.SetDefault("discord.timeout_seconds", defaults.Discord.TimeoutSeconds)
	v.SetDefault("discord.rate_per_minute", defaults.Discord.RatePerMinute)

	// Insight defaults
	v.SetDefault("insight.url", defaults.Insight.URL)
	v.SetDefault("insight.api_key", defaults.Insight.APIKey)
	v.SetDefault("insight.model", defaults.Insight.Model)
	v.SetDefault("insight.timeout_seconds", defaults.Insight.TimeoutSeconds)
	v.SetDefault("insight.max_chars", defaults.Insight.MaxChars)
	v.SetDefault("insight.temperature", defaults.Insight.Temperature)

	// Detection defaults
	v.SetDefault("detection.check_interval_seconds", defaults.Detection.CheckIntervalSeconds)
	v.SetDefault("detection.zscore_threshold", defaults.Detection.ZScoreThreshold)
	v.SetDefault("detection.roc_threshold_percent", defaults.Detection.RoCThresholdPercent)
	v.SetDefault("detection.alert_cooldown_seconds", defaults.Detection.AlertCooldownSeconds)
	v.SetDefault("detection.history_hours", defaults.Detection.HistoryHours)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	// Audit defaults
	v.SetDefault("audit.enabled", defaults.Audit.Enabled)
	v.SetDefault("audit.path", defaults.Audit.Path)
	v.SetDefault("audit.max_size_mb", defaults.Audit.MaxSizeMB)
	v.SetDefault("audit.max_backups", defaults.Audit.MaxBackups)
	v.SetDefault("audit.max_age_days", defaults.Audit.MaxAgeDays)
	v.SetDefault("audit.compress", defaults.Audit.Compress)

	// Server defaults
	v.SetDefault("server.enabled", defaults.Server.Enabled)
	v.SetDefault("server.listen_address", defaults.Server.ListenAddress)

	// Tracing defaults
	v.SetDefault("tracing.endpoint", defaults.Tracing.Endpoint)
	v.SetDefault("tracing.sampling_rate", defaults.Tracing.SamplingRate)
}

// unmarshalConfig copies viper's merged view into a Config.
func unmarshalConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	// Prometheus
	cfg.Prometheus.URL = v.GetString("prometheus.url")
	cfg.Prometheus.TimeoutSeconds = v.GetInt("prometheus.timeout_seconds")
	cfg.Prometheus.StepSeconds = v.GetInt("prometheus.step_seconds")

	// Discord
	cfg.Discord.WebhookURL = v.GetString("discord.webhook_url")
	cfg.Discord.TimeoutSeconds = v.GetInt("discord.timeout_seconds")
	cfg.Discord.RatePerMinute = v.GetInt("discord.rate_per_minute")

	// Insight
	cfg.Insight.URL = v.GetString("insight.url")
	cfg.Insight.APIKey = v.GetString("insight.api_key")
	cfg.Insight.Model = v.GetString("insight.model")
	cfg.Insight.TimeoutSeconds = v.GetInt("insight.timeout_seconds")
	cfg.Insight.MaxChars = v.GetInt("insight.max_chars")
	cfg.Insight.Temperature = v.GetFloat64("insight.temperature")

	// Detection
	cfg.Detection.CheckIntervalSeconds = v.GetInt("detection.check_interval_seconds")
	cfg.Detection.ZScoreThreshold = v.GetFloat64("detection.zscore_threshold")
	cfg.Detection.RoCThresholdPercent = v.GetFloat64("detection.roc_threshold_percent")
	cfg.Detection.AlertCooldownSeconds = v.GetInt("detection.alert_cooldown_seconds")
	cfg.Detection.HistoryHours = v.GetInt("detection.history_hours")

	// Logging
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.File = v.GetString("logging.file")
	cfg.Logging.MaxSizeMB = v.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = v.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = v.GetInt("logging.max_age_days")
	cfg.Logging.Compress = v.GetBool("logging.compress")

	// Audit
	cfg.Audit.Enabled = v.GetBool("audit.enabled")
	cfg.Audit.Path = v.GetString("audit.path")
	cfg.Audit.MaxSizeMB = v.GetInt("audit.max_size_mb")
	cfg.Audit.MaxBackups = v.GetInt("audit.max_backups")
	cfg.Audit.MaxAgeDays = v.GetInt("audit.max_age_days")
	cfg.Audit.Compress = v.GetBool("audit.compress")

	// Server
	cfg.Server.Enabled = v.GetBool("server.enabled")
	cfg.Server.ListenAddress = v.GetString("server.listen_address")

	// Tracing
	cfg.Tracing.Endpoint = v.GetString("tracing.endpoint")
	cfg.Tracing.SamplingRate = v.GetFloat64("tracing.sampling_rate")

	return cfg
}

// applyEnvOverrides applies the legacy unprefixed variables unless the
// prefixed form or a CLI override already set the key.
func (m *viperConfigManager) applyEnvOverrides(cfg *Config) {
	for env, key := range legacyEnv {
		value := os.Getenv(env)
		if value == "" {
			continue
		}
		if _, pinned := m.overrides[key]; pinned {
			continue
		}
		if os.Getenv(EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))) != "" {
			continue
		}
		switch key {
		case "discord.webhook_url":
			cfg.Discord.WebhookURL = value
		case "prometheus.url":
			cfg.Prometheus.URL = value
		case "insight.url":
			cfg.Insight.URL = value
		case "insight.api_key":
			cfg.Insight.APIKey = value
		case "insight.model":
			cfg.Insight.Model = value
		}
	}
}

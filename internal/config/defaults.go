package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Prometheus defaults
	cfg.Prometheus.URL = "http://localhost:9090"
	cfg.Prometheus.TimeoutSeconds = 10
	cfg.Prometheus.StepSeconds = 60

	// Discord defaults (webhook has no usable default)
	cfg.Discord.WebhookURL = ""
	cfg.Discord.TimeoutSeconds = 5
	cfg.Discord.RatePerMinute = 30

	// Insight defaults
	cfg.Insight.URL = ""
	cfg.Insight.APIKey = ""
	cfg.Insight.Model = "llama2"
	cfg.Insight.TimeoutSeconds = 15
	cfg.Insight.MaxChars = 250
	cfg.Insight.Temperature = 0.7

	// Detection defaults
	cfg.Detection.CheckIntervalSeconds = 60
	cfg.Detection.ZScoreThreshold = 2.5 // 1.5 very sensitive, 3.5 conservative
	cfg.Detection.RoCThresholdPercent = 100
	cfg.Detection.AlertCooldownSeconds = 300
	cfg.Detection.HistoryHours = 24

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 14
	cfg.Logging.Compress = true

	// Audit defaults
	cfg.Audit.Enabled = false
	cfg.Audit.Path = "/var/log/minio-anomaly-detector/alerts.jsonl"
	cfg.Audit.MaxSizeMB = 50
	cfg.Audit.MaxBackups = 5
	cfg.Audit.MaxAgeDays = 30
	cfg.Audit.Compress = true

	// Server defaults
	cfg.Server.Enabled = true
	cfg.Server.ListenAddress = ":9464"

	// Tracing defaults
	cfg.Tracing.Endpoint = ""
	cfg.Tracing.SamplingRate = 1.0

	return cfg
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// placeholderMarkers flag template values that were never filled in.
var placeholderMarkers = []string{"YOUR_", "<"}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Discord webhook is mandatory
	if err := validateHTTPURL("discord.webhook_url", c.Discord.WebhookURL); err != nil {
		errs = append(errs, err)
	} else if isPlaceholder(c.Discord.WebhookURL) {
		errs = append(errs, &ValidationError{
			Field:   "discord.webhook_url",
			Message: "webhook URL is still a placeholder",
		})
	}
	if c.Discord.TimeoutSeconds < 1 {
		errs = append(errs, positive("discord.timeout_seconds", c.Discord.TimeoutSeconds))
	}
	if c.Discord.RatePerMinute < 1 {
		errs = append(errs, positive("discord.rate_per_minute", c.Discord.RatePerMinute))
	}

	// Prometheus
	if err := validateHTTPURL("prometheus.url", c.Prometheus.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Prometheus.TimeoutSeconds < 1 {
		errs = append(errs, positive("prometheus.timeout_seconds", c.Prometheus.TimeoutSeconds))
	}
	if c.Prometheus.StepSeconds < 1 {
		errs = append(errs, positive("prometheus.step_seconds", c.Prometheus.StepSeconds))
	}

	// Insight is optional; only check what is used when enabled
	if c.InsightEnabled() {
		if err := validateHTTPURL("insight.url", c.Insight.URL); err != nil {
			errs = append(errs, err)
		}
		if c.Insight.TimeoutSeconds < 1 {
			errs = append(errs, positive("insight.timeout_seconds", c.Insight.TimeoutSeconds))
		}
		if c.Insight.MaxChars < 1 {
			errs = append(errs, positive("insight.max_chars", c.Insight.MaxChars))
		}
	}
	if c.Insight.Temperature < 0 || c.Insight.Temperature > 2 {
		errs = append(errs, &ValidationError{
			Field:   "insight.temperature",
			Message: fmt.Sprintf("temperature must be between 0 and 2, got %.2f", c.Insight.Temperature),
		})
	}

	// Detection
	if c.Detection.CheckIntervalSeconds < 1 {
		errs = append(errs, positive("detection.check_interval_seconds", c.Detection.CheckIntervalSeconds))
	}
	if c.Detection.ZScoreThreshold <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "detection.zscore_threshold",
			Message: fmt.Sprintf("must be greater than 0, got %.2f", c.Detection.ZScoreThreshold),
		})
	}
	if c.Detection.RoCThresholdPercent <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "detection.roc_threshold_percent",
			Message: fmt.Sprintf("must be greater than 0, got %.2f", c.Detection.RoCThresholdPercent),
		})
	}
	if c.Detection.AlertCooldownSeconds < 1 {
		errs = append(errs, positive("detection.alert_cooldown_seconds", c.Detection.AlertCooldownSeconds))
	}
	if c.Detection.HistoryHours < 1 {
		errs = append(errs, positive("detection.history_hours", c.Detection.HistoryHours))
	}

	// Logging
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (expected debug, info, warn or error)", c.Logging.Level),
		})
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q (expected console or json)", c.Logging.Format),
		})
	}

	// Audit
	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "audit.path",
			Message: "path is required when audit is enabled",
		})
	}

	// Server
	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.ListenAddress); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "server.listen_address",
				Message: fmt.Sprintf("invalid address (expected host:port): %v", err),
			})
		}
	}

	// Tracing
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		errs = append(errs, &ValidationError{
			Field:   "tracing.sampling_rate",
			Message: fmt.Sprintf("sampling rate must be between 0 and 1, got %.2f", c.Tracing.SamplingRate),
		})
	}

	return errs
}

func positive(field string, got int) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be at least 1, got %d", got),
	}
}

// validateHTTPURL requires an absolute http or https URL.
func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return &ValidationError{Field: field, Message: "URL is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("URL must start with http:// or https://, got %q", raw)}
	}
	if u.Host == "" {
		return &ValidationError{Field: field, Message: "URL has no host"}
	}
	return nil
}

func isPlaceholder(v string) bool {
	for _, marker := range placeholderMarkers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

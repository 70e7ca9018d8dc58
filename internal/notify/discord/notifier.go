// Package discord delivers alerts to a Discord webhook as a single embed.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/metrics"
)

const (
	DefaultTimeout       = 5 * time.Second
	DefaultRatePerMinute = 30

	footerText   = "MinIO Anomaly Detector"
	maxBurst     = 5
	colorDefault = 0xFF0000
)

var severityColors = map[alert.Severity]int{
	alert.SeverityLow:    0xFFA500,
	alert.SeverityMedium: 0xFF6600,
	alert.SeverityHigh:   0xFF0000,
}

// Config holds webhook settings.
type Config struct {
	WebhookURL    string
	Timeout       time.Duration
	RatePerMinute int
}

// Notifier posts alerts to a webhook.
type Notifier struct {
	webhookURL string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []EmbedField `json:"fields"`
	Footer EmbedFooter  `json:"footer"`
}

// Payload is the webhook request body.
type Payload struct {
	Embeds []Embed `json:"embeds"`
}

// NewNotifier creates a notifier for cfg.WebhookURL.
func NewNotifier(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	burst := cfg.RatePerMinute
	if burst > maxBurst {
		burst = maxBurst
	}

	return &Notifier{
		webhookURL: cfg.WebhookURL,
		timeout:    cfg.Timeout,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), burst),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("discord"),
	}, nil
}

// Deliver posts a to the webhook and reports whether it was accepted.
// Failures are logged and never retried.
func (n *Notifier) Deliver(ctx context.Context, a *alert.Alert) bool {
	if a == nil {
		return false
	}
	if err := n.send(ctx, a); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		n.logger.Error("Failed to send Discord alert",
			zap.String("alert_id", a.ID),
			zap.String("metric", a.MetricName),
			zap.Error(err))
		return false
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	n.logger.Info("Alert sent to Discord",
		zap.String("alert_id", a.ID),
		zap.String("metric", a.MetricName),
		zap.String("severity", string(a.Severity)))
	return true
}

func (n *Notifier) send(ctx context.Context, a *alert.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limited: %w", err)
	}

	body, err := json.Marshal(BuildPayload(a))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// BuildPayload renders a as a webhook body holding one embed.
func BuildPayload(a *alert.Alert) Payload {
	color, ok := severityColors[a.Severity]
	if !ok {
		color = colorDefault
	}

	fields := []EmbedField{
		{Name: "Severity", Value: strings.ToUpper(string(a.Severity)), Inline: true},
		{Name: "Current Value", Value: fmt.Sprintf("`%.2f`", a.CurrentValue), Inline: true},
		{Name: "Expected Range", Value: fmt.Sprintf("`%.2f - %.2f`", a.ExpectedRange.Low, a.ExpectedRange.High)},
		{Name: "Timestamp", Value: a.Timestamp},
	}
	if detail := a.Detail(); detail != "" {
		fields = append(fields, EmbedField{Name: "Context/Insight", Value: detail})
	}

	return Payload{Embeds: []Embed{{
		Title:  fmt.Sprintf("🚨 %s Anomaly Detected", a.MetricName),
		Color:  color,
		Fields: fields,
		Footer: EmbedFooter{Text: footerText},
	}}}
}

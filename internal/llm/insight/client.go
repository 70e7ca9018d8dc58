package insight

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

	"github.com/cyraxabir/minio-anomaly-detector/internal/metrics"
)

// Package insight asks an OpenAI-compatible chat endpoint (OpenWebUI) for a short
// explanation of an anomaly.
//
// Responsibilities:
//   - Build the analysis prompt from metric name, current and expected values
//   - Call {url}/api/chat/completions with bearer auth, non-streaming
//   - Trim and cap the answer so it fits a chat embed field
//   - Swallow every failure: callers get "" and carry on without an insight

const (
	DefaultModel       = "llama2"
	DefaultTimeout     = 15 * time.Second
	DefaultMaxChars    = 250
	DefaultTemperature = 0.7

	completionsPath = "/api/chat/completions"
)

// Config holds connection settings for the completion endpoint.
type Config struct {
	URL         string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxChars    int
	Temperature float64
}

// Client generates anomaly insights.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxChars    int
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates an insight client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("insight URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("insight API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxChars:    cfg.MaxChars,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("insight"),
	}, nil
}

// Summarize returns a one or two sentence explanation of the anomaly, or "" on any failure.
func (c *Client) Summarize(ctx context.Context, metric string, current, expected, deltaPercent float64) string {
	text, err := c.complete(ctx, BuildPrompt(metric, current, expected, deltaPercent))
	if err != nil {
		metrics.InsightRequestsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		c.logger.Warn("Insight request failed", zap.String("metric", metric), zap.Error(err))
		return ""
	}
	if text == "" {
		metrics.InsightRequestsTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return ""
	}
	metrics.InsightRequestsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return Truncate(text, c.maxChars)
}

// BuildPrompt renders the analysis prompt sent to the model.
func BuildPrompt(metric string, current, expected, deltaPercent float64) string {
	return fmt.Sprintf("Analyze this MinIO storage anomaly briefly (1-2 sentences max):\n\n"+
		"Metric: %s\n"+
		"Current value: %.2f\n"+
		"Expected value: %.2f\n"+
		"Change: %+.1f%%\n\n"+
		"Provide a brief technical explanation of what this could indicate for object storage operations.",
		metric, current, expected, deltaPercent)
}

// Truncate caps s at max characters.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      false,
		Temperature: c.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API error (status %d): %s", resp.StatusCode, Truncate(string(responseBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

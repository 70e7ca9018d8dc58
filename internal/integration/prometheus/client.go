// Package prometheus adapts the Prometheus HTTP API to the detector's metric source.
//
// Two flavours of each query are offered. QueryRange and QueryInstant never fail:
// any error is logged and turned into an empty series or zero, so a cycle can skip
// the signal and move on. Range and Instant return the error for callers that want it.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/metrics"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultStep    = analytics.DefaultStep
)

// ErrNoData is returned when a query succeeds but yields no samples.
var ErrNoData = errors.New("query returned no data")

// Config holds connection settings for a Prometheus server.
type Config struct {
	URL     string
	Timeout time.Duration
	Step    time.Duration
}

// Client queries a Prometheus server.
type Client struct {
	api     v1.API
	timeout time.Duration
	step    time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewClient creates a client for the server at cfg.URL.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("prometheus URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiClient, err := api.NewClient(api.Config{
		Address:      cfg.URL,
		RoundTripper: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	return &Client{
		api:     v1.NewAPI(apiClient),
		timeout: cfg.Timeout,
		step:    cfg.Step,
		logger:  logger.Named("prometheus"),
		now:     time.Now,
	}, nil
}

// QueryRange returns the first series of expr over the trailing window, or an
// empty series on any failure.
func (c *Client) QueryRange(ctx context.Context, expr string, window time.Duration) analytics.Series {
	series, err := c.Range(ctx, expr, window)
	if err != nil {
		c.observe(err)
		if !errors.Is(err, ErrNoData) {
			c.logger.Warn("Range query failed", zap.String("query", expr), zap.Error(err))
		}
		return analytics.Series{Query: expr}
	}
	metrics.MetricQueriesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return series
}

// QueryInstant returns the first sample of expr at the current time, or 0 on any failure.
func (c *Client) QueryInstant(ctx context.Context, expr string) float64 {
	v, err := c.Instant(ctx, expr)
	if err != nil {
		c.observe(err)
		if !errors.Is(err, ErrNoData) {
			c.logger.Warn("Instant query failed", zap.String("query", expr), zap.Error(err))
		}
		return 0
	}
	metrics.MetricQueriesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return v
}

// Range runs a range query over [now-window, now] at the configured step.
// Only the first returned series is used.
func (c *Client) Range(ctx context.Context, expr string, window time.Duration) (analytics.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	end := c.now()
	r := v1.Range{Start: end.Add(-window), End: end, Step: c.step}

	value, warnings, err := c.api.QueryRange(ctx, expr, r)
	if err != nil {
		return analytics.Series{Query: expr}, fmt.Errorf("range query %q: %w", expr, err)
	}
	c.logWarnings(expr, warnings)

	matrix, ok := value.(model.Matrix)
	if !ok {
		return analytics.Series{Query: expr}, fmt.Errorf("range query %q: unexpected result type %s", expr, value.Type())
	}
	if len(matrix) == 0 || len(matrix[0].Values) == 0 {
		return analytics.Series{Query: expr}, ErrNoData
	}

	points := make([]analytics.DataPoint, 0, len(matrix[0].Values))
	for _, pair := range matrix[0].Values {
		v := float64(pair.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		points = append(points, analytics.DataPoint{Timestamp: pair.Timestamp.Time(), Value: v})
	}
	if len(points) == 0 {
		return analytics.Series{Query: expr}, ErrNoData
	}
	return analytics.Series{Query: expr, Points: points}, nil
}

// Instant runs an instant query and returns the first sample's value.
func (c *Client) Instant(ctx context.Context, expr string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, warnings, err := c.api.Query(ctx, expr, c.now())
	if err != nil {
		return 0, fmt.Errorf("instant query %q: %w", expr, err)
	}
	c.logWarnings(expr, warnings)

	switch v := value.(type) {
	case model.Vector:
		if len(v) == 0 {
			return 0, ErrNoData
		}
		return float64(v[0].Value), nil
	case *model.Scalar:
		return float64(v.Value), nil
	default:
		return 0, fmt.Errorf("instant query %q: unexpected result type %s", expr, value.Type())
	}
}

func (c *Client) observe(err error) {
	if errors.Is(err, ErrNoData) {
		metrics.MetricQueriesTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return
	}
	metrics.MetricQueriesTotal.WithLabelValues(metrics.ResultFailure).Inc()
}

func (c *Client) logWarnings(expr string, warnings v1.Warnings) {
	if len(warnings) > 0 {
		c.logger.Debug("Query returned warnings", zap.String("query", expr), zap.Strings("warnings", warnings))
	}
}

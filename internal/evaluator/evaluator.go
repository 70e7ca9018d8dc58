// Package evaluator holds the per-signal checks run on every monitoring cycle.
//
// Each evaluator fetches one or two series, runs a detector over them and,
// when the detector fires and the cooldown gate allows it, builds an alert,
// optionally asks for an insight, delivers it and records the cooldown.
// Missing data is never an error: the signal is skipped for the cycle.
package evaluator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/audit"
	"github.com/cyraxabir/minio-anomaly-detector/internal/metrics"
)

// Default detection settings.
const (
	DefaultZScoreThreshold = 2.5
	DefaultRoCThreshold    = 100.0
	DefaultWindow          = analytics.DefaultWindow

	// fixedZScoreThreshold is used by the request and error rate checks
	// regardless of configuration.
	fixedZScoreThreshold = 2.0
)

// Evaluator is one check in the monitoring cycle.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context) error
}

// MetricSource returns the trailing series for a PromQL expression.
// Failures surface as an empty series.
type MetricSource interface {
	QueryRange(ctx context.Context, expr string, window time.Duration) analytics.Series
}

// Notifier delivers an alert and reports success.
type Notifier interface {
	Deliver(ctx context.Context, a *alert.Alert) bool
}

// InsightGenerator explains an anomaly in a sentence or two, or returns "".
type InsightGenerator interface {
	Summarize(ctx context.Context, metric string, current, expected, deltaPercent float64) string
}

// Thresholds is a snapshot of the tunable detection settings.
type Thresholds struct {
	ZScore       float64
	RateOfChange float64
	Window       time.Duration
}

// Tunables holds detection settings that may change while the monitor runs.
type Tunables struct {
	mu sync.RWMutex
	t  Thresholds
}

// NewTunables creates tunables from t, filling zero fields with defaults.
func NewTunables(t Thresholds) *Tunables {
	tu := &Tunables{}
	tu.Set(t)
	return tu
}

// Get returns the current settings.
func (tu *Tunables) Get() Thresholds {
	tu.mu.RLock()
	defer tu.mu.RUnlock()
	return tu.t
}

// Set replaces the settings.
func (tu *Tunables) Set(t Thresholds) {
	if t.ZScore <= 0 {
		t.ZScore = DefaultZScoreThreshold
	}
	if t.RateOfChange <= 0 {
		t.RateOfChange = DefaultRoCThreshold
	}
	if t.Window <= 0 {
		t.Window = DefaultWindow
	}
	tu.mu.Lock()
	defer tu.mu.Unlock()
	tu.t = t
}

// Dependencies are the collaborators shared by all evaluators.
type Dependencies struct {
	Source   MetricSource
	Gate     *alert.Gate
	Notifier Notifier
	// Insight may be nil, in which case alerts carry no insight.
	Insight  InsightGenerator
	Tunables *Tunables
	Audit    audit.Logger
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d *Dependencies) withDefaults() *Dependencies {
	c := *d
	if c.Tunables == nil {
		c.Tunables = NewTunables(Thresholds{})
	}
	if c.Gate == nil {
		c.Gate = alert.NewGate(alert.DefaultCooldown, nil)
	}
	if c.Audit == nil {
		c.Audit = audit.NewNopLogger()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &c
}

// Default returns the canonical evaluators in cycle order:
// storage, request rate, network, error rate.
func Default(deps *Dependencies) []Evaluator {
	d := deps.withDefaults()
	return []Evaluator{
		&StorageEvaluator{deps: d},
		&RequestRateEvaluator{deps: d},
		&NetworkEvaluator{deps: d},
		&ErrorRateEvaluator{deps: d},
	}
}

// fetch returns the values of expr over the configured window.
func (d *Dependencies) fetch(ctx context.Context, expr string) []float64 {
	return d.Source.QueryRange(ctx, expr, d.Tunables.Get().Window).Values()
}

// admit records a detected anomaly and reports whether the gate lets it through.
func (d *Dependencies) admit(ctx context.Context, key, metric string, value float64) bool {
	metrics.AnomaliesDetected.WithLabelValues(key).Inc()
	_ = d.Audit.LogAlertDetected(ctx, key, metric, value)

	if !d.Gate.CanAlert(key) {
		metrics.AlertsSuppressed.WithLabelValues(key).Inc()
		_ = d.Audit.LogAlertSuppressed(ctx, key, metric, value)
		d.Logger.Debug("Alert suppressed by cooldown", zap.String("key", key), zap.Float64("value", value))
		return false
	}
	return true
}

// summarize asks for an insight when a generator is configured.
func (d *Dependencies) summarize(ctx context.Context, metric string, current, expected, delta float64) string {
	if d.Insight == nil {
		return ""
	}
	return d.Insight.Summarize(ctx, metric, current, expected, delta)
}

// dispatch delivers a and records the cooldown whatever the outcome.
func (d *Dependencies) dispatch(ctx context.Context, a *alert.Alert) {
	delivered := d.Notifier.Deliver(ctx, a)
	d.Gate.Record(a.Key)

	if delivered {
		_ = d.Audit.LogAlertDelivered(ctx, a)
	} else {
		_ = d.Audit.LogAlertDeliveryFailed(ctx, a)
	}
	d.Logger.Info("Anomaly alert dispatched",
		zap.String("alert_id", a.ID),
		zap.String("key", a.Key),
		zap.String("severity", string(a.Severity)),
		zap.Float64("current", a.CurrentValue),
		zap.Bool("delivered", delivered))
}

func (d *Dependencies) newAlert(key, metric string, current float64, expected alert.Range, severity alert.Severity) *alert.Alert {
	return alert.New(key, metric, current, expected, severity, d.Now())
}

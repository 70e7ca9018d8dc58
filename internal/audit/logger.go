package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
)

// Logger records alert lifecycle events to an append-only journal.
// The engine never reads the journal back.
type Logger interface {
	// Log buffers an event
	Log(ctx context.Context, event *Event) error

	LogAlertDetected(ctx context.Context, key, metric string, value float64) error
	LogAlertSuppressed(ctx context.Context, key, metric string, value float64) error
	LogAlertDelivered(ctx context.Context, a *alert.Alert) error
	LogAlertDeliveryFailed(ctx context.Context, a *alert.Alert) error

	LogSystemStarted(ctx context.Context, version string) error
	LogSystemStopped(ctx context.Context, uptime time.Duration) error
	LogConfigReloaded(ctx context.Context, changes map[string]interface{}) error

	// Sync flushes buffered events
	Sync() error

	Close() error
}

// Config controls the journal file and its rotation
type Config struct {
	// Path is the journal file
	Path string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of rotated files to keep
	MaxBackups int

	// MaxAge is the maximum number of days to keep rotated files
	MaxAge int

	Compress bool
}

// DefaultConfig returns default journal configuration
func DefaultConfig() *Config {
	return &Config{
		Path:       "logs/alerts.jsonl",
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

const (
	bufferSize    = 64
	flushInterval = time.Second
)

type journal struct {
	out         *zap.Logger
	mu          sync.Mutex
	buffer      []*Event
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// NewLogger creates a journal writing JSON lines to config.Path
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("audit journal path is required")
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "logged_at",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	rotator := &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapcore.InfoLevel,
	)

	j := &journal{
		out:         zap.New(core),
		buffer:      make([]*Event, 0, bufferSize),
		flushTicker: time.NewTicker(flushInterval),
		stopCh:      make(chan struct{}),
	}
	go j.autoFlush()

	return j, nil
}

func (j *journal) Log(ctx context.Context, event *Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.buffer = append(j.buffer, event)
	if len(j.buffer) >= bufferSize {
		j.flushLocked()
	}
	return nil
}

// flushLocked writes buffered events; caller must hold mu
func (j *journal) flushLocked() {
	for _, e := range j.buffer {
		fields := []zap.Field{
			zap.Time("timestamp", e.Timestamp),
			zap.String("event_type", string(e.EventType)),
			zap.String("result", string(e.Result)),
		}
		if e.AlertID != "" {
			fields = append(fields, zap.String("alert_id", e.AlertID))
		}
		if e.AlertKey != "" {
			fields = append(fields,
				zap.String("alert_key", e.AlertKey),
				zap.String("metric", e.Metric),
				zap.Float64("value", e.Value))
		}
		if e.Severity != "" {
			fields = append(fields, zap.String("severity", e.Severity))
		}
		if e.Error != "" {
			fields = append(fields, zap.String("error", e.Error))
		}
		if len(e.Metadata) > 0 {
			fields = append(fields, zap.Any("metadata", e.Metadata))
		}
		j.out.Info(e.Description, fields...)
	}
	j.buffer = j.buffer[:0]
}

func (j *journal) autoFlush() {
	for {
		select {
		case <-j.flushTicker.C:
			j.mu.Lock()
			j.flushLocked()
			j.mu.Unlock()
		case <-j.stopCh:
			return
		}
	}
}

func (j *journal) LogAlertDetected(ctx context.Context, key, metric string, value float64) error {
	event := NewEvent(EventAlertDetected).
		WithAlert("", key, metric, "").
		WithValue(value).
		WithResult(ResultPending).
		WithDescription(fmt.Sprintf("Anomaly detected for %s", key))
	return j.Log(ctx, event)
}

func (j *journal) LogAlertSuppressed(ctx context.Context, key, metric string, value float64) error {
	event := NewEvent(EventAlertSuppressed).
		WithAlert("", key, metric, "").
		WithValue(value).
		WithResult(ResultSuppressed).
		WithDescription(fmt.Sprintf("Alert for %s suppressed by cooldown", key))
	return j.Log(ctx, event)
}

func (j *journal) LogAlertDelivered(ctx context.Context, a *alert.Alert) error {
	event := alertEvent(EventAlertDelivered, a).
		WithResult(ResultSuccess).
		WithDescription(fmt.Sprintf("Alert %s delivered", a.ID))
	return j.Log(ctx, event)
}

func (j *journal) LogAlertDeliveryFailed(ctx context.Context, a *alert.Alert) error {
	event := alertEvent(EventAlertDeliveryFailed, a).
		WithResult(ResultFailure).
		WithDescription(fmt.Sprintf("Alert %s could not be delivered", a.ID))
	return j.Log(ctx, event)
}

func (j *journal) LogSystemStarted(ctx context.Context, version string) error {
	event := NewEvent(EventSystemStarted).
		WithResult(ResultSuccess).
		WithMetadata("version", version).
		WithDescription("Anomaly detector started")
	return j.Log(ctx, event)
}

func (j *journal) LogSystemStopped(ctx context.Context, uptime time.Duration) error {
	event := NewEvent(EventSystemStopped).
		WithResult(ResultSuccess).
		WithMetadata("uptime_seconds", uptime.Seconds()).
		WithDescription("Anomaly detector stopped")
	return j.Log(ctx, event)
}

func (j *journal) LogConfigReloaded(ctx context.Context, changes map[string]interface{}) error {
	event := NewEvent(EventConfigReloaded).
		WithResult(ResultSuccess).
		WithDescription("Detection settings reloaded")
	for k, v := range changes {
		event.WithMetadata(k, v)
	}
	return j.Log(ctx, event)
}

func (j *journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.flushLocked()
	return j.out.Sync()
}

func (j *journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.stopCh)
		j.flushTicker.Stop()
		err = j.Sync()
	})
	return err
}

func alertEvent(eventType EventType, a *alert.Alert) *Event {
	return NewEvent(eventType).
		WithAlert(a.ID, a.Key, a.MetricName, string(a.Severity)).
		WithValue(a.CurrentValue)
}

// nopLogger discards every event
type nopLogger struct{}

// NewNopLogger returns a Logger that records nothing, used when the journal is disabled
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Log(context.Context, *Event) error                                 { return nil }
func (nopLogger) LogAlertDetected(context.Context, string, string, float64) error   { return nil }
func (nopLogger) LogAlertSuppressed(context.Context, string, string, float64) error { return nil }
func (nopLogger) LogAlertDelivered(context.Context, *alert.Alert) error             { return nil }
func (nopLogger) LogAlertDeliveryFailed(context.Context, *alert.Alert) error        { return nil }
func (nopLogger) LogSystemStarted(context.Context, string) error                    { return nil }
func (nopLogger) LogSystemStopped(context.Context, time.Duration) error             { return nil }
func (nopLogger) LogConfigReloaded(context.Context, map[string]interface{}) error   { return nil }
func (nopLogger) Sync() error                                                       { return nil }
func (nopLogger) Close() error                                                      { return nil }

// Package monitor drives the evaluation loop.
//
// A cycle runs every evaluator in order. Evaluator errors and panics are
// logged and counted; they never stop the loop. Cancellation is observed
// between cycles, so a cycle that has started always runs to the end.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/cyraxabir/minio-anomaly-detector/internal/evaluator"
	"github.com/cyraxabir/minio-anomaly-detector/internal/metrics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/tracing"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 60 * time.Second

// State is the lifecycle state of a Monitor.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Monitor runs evaluators on a fixed interval.
type Monitor struct {
	evaluators []evaluator.Evaluator
	logger     *zap.Logger

	mu        sync.RWMutex
	interval  time.Duration
	state     State
	lastCycle time.Time
	cycles    int64
}

// New creates a stopped monitor.
func New(evaluators []evaluator.Evaluator, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		evaluators: evaluators,
		logger:     logger.Named("monitor"),
		interval:   interval,
		state:      StateStopped,
	}
}

// Run executes cycles until ctx is cancelled. It returns nil on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateRunning {
		m.mu.Unlock()
		return fmt.Errorf("monitor is already running")
	}
	m.state = StateRunning
	m.mu.Unlock()

	defer m.setState(StateStopped)

	m.logger.Info("Starting monitoring loop",
		zap.Duration("interval", m.Interval()),
		zap.Int("evaluators", len(m.evaluators)))

	for {
		if ctx.Err() != nil {
			m.logger.Info("Monitoring loop stopped")
			return nil
		}

		// a started cycle is not interrupted by shutdown
		if err := m.RunOnce(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("Cycle finished with errors", zap.Error(err))
		}

		timer := time.NewTimer(m.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("Monitoring loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce runs every evaluator once, in order, and returns their joined errors.
func (m *Monitor) RunOnce(ctx context.Context) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "monitor.cycle", attribute.Int("evaluators", len(m.evaluators)))
	defer span.End()

	m.logger.Debug("Running anomaly checks")

	var errs []error
	for _, e := range m.evaluators {
		if err := m.evaluate(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}

	elapsed := time.Since(start)
	metrics.CycleDuration.Observe(elapsed.Seconds())
	metrics.LastCycleTimestamp.SetToCurrentTime()

	m.mu.Lock()
	m.lastCycle = time.Now()
	m.cycles++
	m.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		span.SetStatus(codes.Error, err.Error())
	} else {
		metrics.CyclesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	}
	m.logger.Debug("Cycle complete", zap.Duration("duration", elapsed), zap.Int("failed", len(errs)))
	return err
}

// evaluate runs one evaluator, converting a panic into an error.
func (m *Monitor) evaluate(ctx context.Context, e evaluator.Evaluator) (err error) {
	ctx, span := tracing.StartSpan(ctx, "evaluator."+e.Name())
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Evaluator panicked",
				zap.String("evaluator", e.Name()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			metrics.EvaluationsTotal.WithLabelValues(e.Name(), metrics.ResultPanic).Inc()
			span.SetStatus(codes.Error, "panic")
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := e.Evaluate(ctx); err != nil {
		m.logger.Error("Evaluator failed", zap.String("evaluator", e.Name()), zap.Error(err))
		metrics.EvaluationsTotal.WithLabelValues(e.Name(), metrics.ResultFailure).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	metrics.EvaluationsTotal.WithLabelValues(e.Name(), metrics.ResultSuccess).Inc()
	return nil
}

// State reports whether the loop is running.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// Interval returns the pause between cycles.
func (m *Monitor) Interval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval
}

// SetInterval changes the pause; it takes effect at the next sleep.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
}

// LastCycle returns when the last cycle finished and how many have run.
func (m *Monitor) LastCycle() (time.Time, int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCycle, m.cycles
}

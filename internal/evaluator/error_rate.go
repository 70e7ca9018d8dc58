package evaluator

import (
	"context"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics/anomaly"
)

const (
	errorRateQuery   = `rate(minio_gateway_requests_total{status=~"5.."}[5m])`
	errorRateMetric  = "Error Rate (5xx errors/sec)"
	errorRateInsight = "minio_gateway_requests_errors"
)

// ErrorRateEvaluator watches the 5xx response rate.
type ErrorRateEvaluator struct {
	deps *Dependencies
}

func (e *ErrorRateEvaluator) Name() string { return "error_rate" }

func (e *ErrorRateEvaluator) Evaluate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := e.deps

	values := d.fetch(ctx, errorRateQuery)
	if len(values) == 0 {
		return nil
	}

	res := anomaly.ZScore(values, fixedZScoreThreshold)
	if !res.IsAnomaly {
		return nil
	}

	current := values[len(values)-1]
	if !d.admit(ctx, alert.KeyErrorRate, errorRateMetric, current) {
		return nil
	}

	severity := alert.SeverityMedium
	if current > res.Upper*2 {
		severity = alert.SeverityHigh
	}

	a := d.newAlert(alert.KeyErrorRate, errorRateMetric, current,
		alert.Range{Low: res.Lower, High: res.Upper}, severity)

	mean := analytics.Mean(values)
	a.Insight = d.summarize(ctx, errorRateInsight, current, mean, analytics.PercentChange(current, mean))

	d.dispatch(ctx, a)
	return nil
}

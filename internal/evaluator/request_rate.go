package evaluator

import (
	"context"
	"fmt"
	"math"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics/anomaly"
)

const (
	requestRateQuery   = "rate(minio_gateway_requests_total[5m])"
	requestRateMetric  = "Request Rate (requests/sec)"
	requestRateInsight = "minio_gateway_requests_total"

	// highRoCPercent marks a request rate swing as high severity.
	highRoCPercent = 200.0
)

// RequestRateEvaluator flags request rate swings by rate of change or z-score.
type RequestRateEvaluator struct {
	deps *Dependencies
}

func (e *RequestRateEvaluator) Name() string { return "request_rate" }

func (e *RequestRateEvaluator) Evaluate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := e.deps

	values := d.fetch(ctx, requestRateQuery)
	if len(values) == 0 {
		return nil
	}

	roc := anomaly.RateOfChange(values, d.Tunables.Get().RateOfChange)
	z := anomaly.ZScore(values, fixedZScoreThreshold)
	if !roc.IsAnomaly && !z.IsAnomaly {
		return nil
	}

	current := values[len(values)-1]
	if !d.admit(ctx, alert.KeyRequestRate, requestRateMetric, current) {
		return nil
	}

	severity := alert.SeverityMedium
	if math.Abs(roc.ChangePercent) > highRoCPercent {
		severity = alert.SeverityHigh
	}

	a := d.newAlert(alert.KeyRequestRate, requestRateMetric, current,
		alert.Range{Low: z.Lower, High: z.Upper}, severity)
	a.Context = fmt.Sprintf("Rate of change: %+.1f%%", roc.ChangePercent)
	a.Insight = d.summarize(ctx, requestRateInsight, current, analytics.Mean(values), roc.ChangePercent)

	d.dispatch(ctx, a)
	return nil
}

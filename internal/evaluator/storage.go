package evaluator

import (
	"context"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics/anomaly"
)

const (
	storageQuery  = "minio_disk_storage_bytes_free"
	storageMetric = "Disk Storage - Free Space"
	bytesPerGB    = 1e9
)

// StorageEvaluator watches free disk space for sudden drops or jumps.
type StorageEvaluator struct {
	deps *Dependencies
}

func (e *StorageEvaluator) Name() string { return "storage" }

func (e *StorageEvaluator) Evaluate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := e.deps

	values := d.fetch(ctx, storageQuery)
	if len(values) == 0 {
		return nil
	}

	res := anomaly.ZScore(values, d.Tunables.Get().ZScore)
	if !res.IsAnomaly {
		return nil
	}

	current := values[len(values)-1]
	if !d.admit(ctx, alert.KeyStorageSpace, storageMetric, current/bytesPerGB) {
		return nil
	}

	severity := alert.SeverityMedium
	if current < res.Lower*0.5 {
		severity = alert.SeverityHigh
	}

	a := d.newAlert(alert.KeyStorageSpace, storageMetric, current/bytesPerGB,
		alert.Range{Low: res.Lower / bytesPerGB, High: res.Upper / bytesPerGB}, severity)

	mean := analytics.Mean(values)
	a.Insight = d.summarize(ctx, storageQuery, current/bytesPerGB, mean/bytesPerGB, analytics.PercentChange(current, mean))

	d.dispatch(ctx, a)
	return nil
}

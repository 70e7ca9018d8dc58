package evaluator

import (
	"context"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics/anomaly"
)

const (
	networkSendQuery    = "rate(minio_network_send_bytes_total[5m])"
	networkReceiveQuery = "rate(minio_network_receive_bytes_total[5m])"
	bytesPerMB          = 1e6

	// highNetworkScore marks a network deviation as high severity.
	highNetworkScore = 4.0
)

// NetworkEvaluator checks send and receive throughput independently.
// It does nothing unless both directions returned data.
type NetworkEvaluator struct {
	deps *Dependencies
}

type networkDirection struct {
	key    string
	metric string
	values []float64
}

func (e *NetworkEvaluator) Name() string { return "network" }

func (e *NetworkEvaluator) Evaluate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := e.deps

	send := d.fetch(ctx, networkSendQuery)
	recv := d.fetch(ctx, networkReceiveQuery)
	if len(send) == 0 || len(recv) == 0 {
		return nil
	}

	threshold := d.Tunables.Get().ZScore
	for _, dir := range []networkDirection{
		{key: alert.KeyNetworkSend, metric: "Network Send (bytes/sec)", values: send},
		{key: alert.KeyNetworkReceive, metric: "Network Receive (bytes/sec)", values: recv},
	} {
		res := anomaly.ZScore(dir.values, threshold)
		if !res.IsAnomaly {
			continue
		}

		current := dir.values[len(dir.values)-1]
		if !d.admit(ctx, dir.key, dir.metric, current/bytesPerMB) {
			continue
		}

		severity := alert.SeverityMedium
		if res.Score > highNetworkScore {
			severity = alert.SeverityHigh
		}

		a := d.newAlert(dir.key, dir.metric, current/bytesPerMB,
			alert.Range{Low: res.Lower / bytesPerMB, High: res.Upper / bytesPerMB}, severity)
		d.dispatch(ctx, a)
	}
	return nil
}

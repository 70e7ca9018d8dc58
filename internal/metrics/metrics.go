package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
	ResultPanic   = "panic"
)

// Detector self-metrics, exposed on the status server's /metrics endpoint.
var (
	// Orchestrator metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_cycles_total",
			Help: "Total number of evaluation cycles run",
		},
		[]string{"result"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minio_anomaly_cycle_duration_seconds",
			Help:    "Evaluation cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	LastCycleTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minio_anomaly_last_cycle_timestamp_seconds",
			Help: "Unix time the last evaluation cycle finished",
		},
	)

	// Evaluator metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_evaluations_total",
			Help: "Total number of evaluator runs",
		},
		[]string{"evaluator", "result"},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_anomalies_detected_total",
			Help: "Total number of anomalies flagged by a detector",
		},
		[]string{"key"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_alerts_suppressed_total",
			Help: "Total number of anomalies suppressed by the cooldown gate",
		},
		[]string{"key"},
	)

	// Dependency metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_notifications_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"result"},
	)

	InsightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_insight_requests_total",
			Help: "Total number of insight completion requests",
		},
		[]string{"result"},
	)

	MetricQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minio_anomaly_metric_queries_total",
			Help: "Total number of Prometheus queries",
		},
		[]string{"result"},
	)
)

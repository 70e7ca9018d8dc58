package alert

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the urgency attached to an alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert keys, one per monitored signal. The gate tracks cooldowns by key.
const (
	KeyStorageSpace   = "storage_space"
	KeyRequestRate    = "request_rate"
	KeyNetworkSend    = "network_send"
	KeyNetworkReceive = "network_receive"
	KeyErrorRate      = "error_rate"
)

// Range is the expected band for a metric in display units.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Alert is a single anomaly notification.
type Alert struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	MetricName    string   `json:"metric_name"`
	CurrentValue  float64  `json:"current_value"`
	ExpectedRange Range    `json:"expected_range"`
	Severity      Severity `json:"severity"`
	// Timestamp is ISO-8601, taken when the alert is built.
	Timestamp string `json:"timestamp"`
	Context   string `json:"context,omitempty"`
	Insight   string `json:"insight,omitempty"`
}

// New creates an alert with a fresh ID stamped at now.
func New(key, metricName string, current float64, expected Range, severity Severity, now time.Time) *Alert {
	return &Alert{
		ID:            uuid.New().String(),
		Key:           key,
		MetricName:    metricName,
		CurrentValue:  current,
		ExpectedRange: expected,
		Severity:      severity,
		Timestamp:     now.Format(time.RFC3339),
	}
}

// Detail returns the free-text body shown with the alert, preferring the insight.
func (a *Alert) Detail() string {
	if a.Insight != "" {
		return a.Insight
	}
	return a.Context
}

package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
)

func readJournal(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestNewLoggerRequiresPath(t *testing.T) {
	_, err := NewLogger(&Config{})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "logs/alerts.jsonl", config.Path)
	assert.Equal(t, 50, config.MaxSize)
	assert.True(t, config.Compress)
}

func TestAlertLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	logger, err := NewLogger(&Config{Path: path, MaxSize: 1})
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	a := alert.New(alert.KeyErrorRate, "Error Rate (5xx errors/sec)", 3.5, alert.Range{Low: 0, High: 1}, alert.SeverityHigh, time.Now())

	require.NoError(t, logger.LogAlertDetected(ctx, a.Key, a.MetricName, a.CurrentValue))
	require.NoError(t, logger.LogAlertDelivered(ctx, a))
	require.NoError(t, logger.LogAlertSuppressed(ctx, a.Key, a.MetricName, 3.6))
	require.NoError(t, logger.Sync())

	lines := readJournal(t, path)
	require.Len(t, lines, 3)

	assert.Equal(t, "alert.detected", lines[0]["event_type"])
	assert.Equal(t, "error_rate", lines[0]["alert_key"])
	assert.Equal(t, "pending", lines[0]["result"])

	assert.Equal(t, "alert.delivered", lines[1]["event_type"])
	assert.Equal(t, a.ID, lines[1]["alert_id"])
	assert.Equal(t, "high", lines[1]["severity"])
	assert.Equal(t, 3.5, lines[1]["value"])

	assert.Equal(t, "alert.suppressed", lines[2]["event_type"])
	assert.Equal(t, "suppressed", lines[2]["result"])
}

func TestSystemEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	logger, err := NewLogger(&Config{Path: path})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, logger.LogSystemStarted(ctx, "1.2.3"))
	require.NoError(t, logger.LogConfigReloaded(ctx, map[string]interface{}{"zscore_threshold": 3.0}))
	require.NoError(t, logger.LogSystemStopped(ctx, 90*time.Second))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "close is idempotent")

	lines := readJournal(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "system.started", lines[0]["event_type"])
	assert.Equal(t, map[string]interface{}{"version": "1.2.3"}, lines[0]["metadata"])
	assert.Equal(t, "config.reloaded", lines[1]["event_type"])
	assert.Equal(t, "system.stopped", lines[2]["event_type"])
}

func TestEventBuilder(t *testing.T) {
	event := NewEvent(EventAlertDeliveryFailed).
		WithAlert("id-1", alert.KeyNetworkSend, "Network Send (bytes/sec)", "medium").
		WithValue(12.5).
		WithError(errors.New("webhook returned status 500"))

	assert.Equal(t, ResultFailure, event.Result)
	assert.Equal(t, "webhook returned status 500", event.Error)
	assert.Equal(t, "network_send", event.AlertKey)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NoError(t, logger.LogAlertDetected(context.Background(), "k", "m", 1))
	assert.NoError(t, logger.Close())
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewInvalidFormat(t *testing.T) {
	_, _, err := New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := newWithOutput(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Named("monitor").Info("Cycle complete", zap.Int("failed", 0))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "monitor", entry["logger"])
	assert.Equal(t, "Cycle complete", entry["message"])
	assert.Equal(t, float64(0), entry["failed"])
}

func TestAtomicLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, level, err := newWithOutput(Config{Level: "warn", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	level.SetLevel(zapcore.InfoLevel)
	logger.Info("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detector.log")
	var buf bytes.Buffer
	logger, _, err := newWithOutput(Config{Level: "info", Format: "console", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	logger.Warn("Insight request failed")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"message":"Insight request failed"`)
	assert.Contains(t, buf.String(), "Insight request failed")
}

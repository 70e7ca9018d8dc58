package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cyraxabir/minio-anomaly-detector/internal/config"
)

func testService(t *testing.T) (*service, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Discord.WebhookURL = "https://discord.com/api/webhooks/1/abc"

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	svc, err := newService(cfg, zap.NewNop(), level)
	require.NoError(t, err)
	t.Cleanup(svc.close)
	return svc, cfg
}

func TestServiceApplyReportsChanges(t *testing.T) {
	svc, cfg := testService(t)

	next := *cfg
	next.Detection.ZScoreThreshold = 3
	next.Detection.AlertCooldownSeconds = 600
	next.Detection.CheckIntervalSeconds = 30
	next.Logging.Level = "debug"

	changes := svc.apply(&next)

	assert.Equal(t, 3.0, changes["detection.zscore_threshold"])
	assert.Equal(t, 600, changes["detection.alert_cooldown_seconds"])
	assert.Equal(t, 30, changes["detection.check_interval_seconds"])
	assert.Equal(t, "debug", changes["logging.level"])

	assert.Equal(t, 3.0, svc.tunables.Get().ZScore)
	assert.Equal(t, 10*time.Minute, svc.gate.Cooldown())
	assert.Equal(t, 30*time.Second, svc.monitor.Interval())
	assert.Equal(t, zapcore.DebugLevel, svc.level.Level())
}

func TestServiceApplyUnchanged(t *testing.T) {
	svc, cfg := testService(t)
	assert.Empty(t, svc.apply(cfg))
}

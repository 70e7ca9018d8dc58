package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyraxabir/minio-anomaly-detector/internal/version"
)

// dropMatrix is 23 flat samples followed by a sharp fall.
func dropMatrix() string {
	var b strings.Builder
	b.WriteString(`{"status":"success","data":{"resultType":"matrix","result":[{"metric":{"instance":"minio:9000"},"values":[`)
	for i := 0; i < 24; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		v := "100000000000"
		if i == 23 {
			v = "10000000000"
		}
		fmt.Fprintf(&b, `[%d,"%s"]`, 1714477200+i*60, v)
	}
	b.WriteString(`]}]}}`)
	return b.String()
}

func newPrometheus(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/query_range":
			fmt.Fprint(w, dropMatrix())
		case "/api/v1/query":
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1714477200,"42.5"]}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out, io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "minio-anomaly-detector "+version.String()+"\n", out)
}

func TestQueryCommandReportsVerdicts(t *testing.T) {
	prom := newPrometheus(t)

	out, err := execute(t, "query", "minio_disk_storage_bytes_free",
		"--config", missingConfig(t),
		"--prometheus-url", prom.URL,
		"--tail", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "TIMESTAMP")
	assert.Contains(t, out, "1e+10")
	assert.Contains(t, out, "samples=24")
	assert.Contains(t, out, "anomaly=true")
	// three trailing samples plus the header
	lines := strings.Split(strings.SplitN(out, "\n\n", 2)[0], "\n")
	assert.Len(t, lines, 4)
}

func TestQueryCommandInstant(t *testing.T) {
	prom := newPrometheus(t)

	out, err := execute(t, "query", "up",
		"--config", missingConfig(t),
		"--prometheus-url", prom.URL,
		"--instant")
	require.NoError(t, err)
	assert.Equal(t, "42.5\n", out)
}

func TestQueryCommandRequiresExpression(t *testing.T) {
	_, err := execute(t, "query", "--config", missingConfig(t))
	assert.Error(t, err)
}

func TestCheckCommandDispatchesAlerts(t *testing.T) {
	prom := newPrometheus(t)

	var posts int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	out, err := execute(t, "check",
		"--config", missingConfig(t),
		"--prometheus-url", prom.URL,
		"--webhook-url", hook.URL+"/api/webhooks/1/token",
		"--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "cycle complete")
	assert.Contains(t, out, "storage_space")
	assert.Positive(t, atomic.LoadInt32(&posts))
}

func TestCheckCommandRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing webhook", args: []string{"check", "--webhook-url", ""}},
		{name: "placeholder webhook", args: []string{"check", "--webhook-url", "https://discord.com/api/webhooks/YOUR_WEBHOOK"}},
		{name: "bad log level", args: []string{"check", "--webhook-url", "https://discord.com/api/webhooks/1/abc", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--config", missingConfig(t))
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	out, err := execute(t, "config", "show",
		"--config", missingConfig(t),
		"--webhook-url", "https://discord.com/api/webhooks/1/secret-token")
	require.NoError(t, err)

	assert.Contains(t, out, "webhook_url:")
	assert.Contains(t, out, "***REDACTED***")
	assert.NotContains(t, out, "secret-token")
	assert.Contains(t, out, "zscore_threshold: 2.5")
}

func TestConfigValidate(t *testing.T) {
	out, err := execute(t, "config", "validate",
		"--config", missingConfig(t),
		"--webhook-url", "https://discord.com/api/webhooks/1/abc")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	_, err = execute(t, "config", "validate",
		"--config", missingConfig(t),
		"--webhook-url", "YOUR_WEBHOOK_URL")
	assert.Error(t, err)
}

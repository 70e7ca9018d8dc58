package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionHandler(t *testing.T, content string, seen chan<- chatRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if seen != nil {
			var req chatRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			seen <- req
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL + "/", APIKey: "secret", Model: "llama3", Timeout: timeout}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "complete", cfg: Config{URL: "http://webui", APIKey: "k", Model: "m"}},
		{name: "default model", cfg: Config{URL: "http://webui", APIKey: "k"}},
		{name: "missing url", cfg: Config{APIKey: "k"}, wantErr: true},
		{name: "missing key", cfg: Config{URL: "http://webui"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.cfg.Model == "" {
				assert.Equal(t, DefaultModel, c.model)
			}
		})
	}
}

func TestSummarizeSendsPrompt(t *testing.T) {
	requests := make(chan chatRequest, 1)
	c := newTestClient(t, completionHandler(t, "  Disk is filling up fast.\n", requests), time.Second)

	got := c.Summarize(context.Background(), "minio_disk_storage_bytes_free", 10, 96.25, -89.6)
	seen := <-requests

	assert.Equal(t, "Disk is filling up fast.", got)
	assert.Equal(t, "llama3", seen.Model)
	assert.False(t, seen.Stream)
	assert.Equal(t, 0.7, seen.Temperature)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
	assert.Contains(t, seen.Messages[0].Content, "Metric: minio_disk_storage_bytes_free")
	assert.Contains(t, seen.Messages[0].Content, "Current value: 10.00")
	assert.Contains(t, seen.Messages[0].Content, "Expected value: 96.25")
	assert.Contains(t, seen.Messages[0].Content, "Change: -89.6%")
}

func TestSummarizeTruncates(t *testing.T) {
	c := newTestClient(t, completionHandler(t, strings.Repeat("x", 400), nil), time.Second)

	got := c.Summarize(context.Background(), "m", 1, 1, 0)
	assert.Len(t, got, DefaultMaxChars)
}

func TestSummarizeFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"detail":"bad key"}`)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[]}`)
			},
		},
		{
			name: "malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `not json`)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(500 * time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, 100*time.Millisecond)
			assert.Equal(t, "", c.Summarize(context.Background(), "m", 1, 2, 3))
		})
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "ok", Truncate("ok", 250))
}

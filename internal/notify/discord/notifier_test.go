package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
)

func testAlert(severity alert.Severity) *alert.Alert {
	a := alert.New(alert.KeyStorageSpace, "Disk Storage - Free Space", 10, alert.Range{Low: 53.1234, High: 139.3766}, severity,
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return a
}

func TestNewNotifierRequiresURL(t *testing.T) {
	_, err := NewNotifier(Config{}, nil)
	assert.Error(t, err)
}

func TestBuildPayload(t *testing.T) {
	a := testAlert(alert.SeverityHigh)

	p := BuildPayload(a)

	require.Len(t, p.Embeds, 1)
	e := p.Embeds[0]
	assert.Equal(t, "🚨 Disk Storage - Free Space Anomaly Detected", e.Title)
	assert.Equal(t, 0xFF0000, e.Color)
	assert.Equal(t, "MinIO Anomaly Detector", e.Footer.Text)
	require.Len(t, e.Fields, 4, "no detail field without context or insight")
	assert.Equal(t, EmbedField{Name: "Severity", Value: "HIGH", Inline: true}, e.Fields[0])
	assert.Equal(t, EmbedField{Name: "Current Value", Value: "`10.00`", Inline: true}, e.Fields[1])
	assert.Equal(t, EmbedField{Name: "Expected Range", Value: "`53.12 - 139.38`"}, e.Fields[2])
	assert.Equal(t, EmbedField{Name: "Timestamp", Value: "2024-05-01T12:00:00Z"}, e.Fields[3])
}

func TestBuildPayloadColors(t *testing.T) {
	tests := []struct {
		severity alert.Severity
		color    int
	}{
		{alert.SeverityLow, 0xFFA500},
		{alert.SeverityMedium, 0xFF6600},
		{alert.SeverityHigh, 0xFF0000},
		{alert.Severity("unknown"), 0xFF0000},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.color, BuildPayload(testAlert(tt.severity)).Embeds[0].Color)
		})
	}
}

func TestBuildPayloadDetailField(t *testing.T) {
	a := testAlert(alert.SeverityMedium)
	a.Context = "Rate of change: +150.0%"

	fields := BuildPayload(a).Embeds[0].Fields
	require.Len(t, fields, 5)
	assert.Equal(t, EmbedField{Name: "Context/Insight", Value: "Rate of change: +150.0%"}, fields[4])

	a.Insight = "Clients are retrying aggressively."
	fields = BuildPayload(a).Embeds[0].Fields
	assert.Equal(t, "Clients are retrying aggressively.", fields[4].Value)
}

func TestDeliver(t *testing.T) {
	received := make(chan Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p Payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewNotifier(Config{WebhookURL: srv.URL}, nil)
	require.NoError(t, err)

	assert.True(t, n.Deliver(context.Background(), testAlert(alert.SeverityHigh)))
	got := <-received
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "HIGH", got.Embeds[0].Fields[0].Value)
}

func TestDeliverFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
		},
		{
			name: "rate limited upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
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
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			n, err := NewNotifier(Config{WebhookURL: srv.URL, Timeout: 100 * time.Millisecond}, nil)
			require.NoError(t, err)
			assert.False(t, n.Deliver(context.Background(), testAlert(alert.SeverityMedium)))
		})
	}
}

func TestDeliverUnreachable(t *testing.T) {
	n, err := NewNotifier(Config{WebhookURL: "http://127.0.0.1:1/webhook", Timeout: 200 * time.Millisecond}, nil)
	require.NoError(t, err)
	assert.False(t, n.Deliver(context.Background(), testAlert(alert.SeverityLow)))
}

func TestDeliverLocalRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	// one token, refilled every 60s: the second send cannot fit in the timeout
	n, err := NewNotifier(Config{WebhookURL: srv.URL, Timeout: 100 * time.Millisecond, RatePerMinute: 1}, nil)
	require.NoError(t, err)

	assert.True(t, n.Deliver(context.Background(), testAlert(alert.SeverityHigh)))
	assert.False(t, n.Deliver(context.Background(), testAlert(alert.SeverityHigh)))
	assert.Equal(t, int32(1), calls.Load())
}

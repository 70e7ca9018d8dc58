package evaluator

import (
	"context"
	"sync"
	"time"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
)

type fakeSource struct {
	mu      sync.Mutex
	series  map[string][]float64
	queries []string
	windows []time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{series: make(map[string][]float64)}
}

func (s *fakeSource) set(expr string, values []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[expr] = values
}

func (s *fakeSource) QueryRange(ctx context.Context, expr string, window time.Duration) analytics.Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, expr)
	s.windows = append(s.windows, window)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := analytics.Series{Query: expr}
	for i, v := range s.series[expr] {
		out.Points = append(out.Points, analytics.DataPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v})
	}
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	result bool
	alerts []*alert.Alert
}

func (n *fakeNotifier) Deliver(ctx context.Context, a *alert.Alert) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.result
}

func (n *fakeNotifier) delivered() []*alert.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*alert.Alert(nil), n.alerts...)
}

type insightCall struct {
	metric                   string
	current, expected, delta float64
}

type fakeInsight struct {
	mu    sync.Mutex
	text  string
	calls []insightCall
}

func (f *fakeInsight) Summarize(ctx context.Context, metric string, current, expected, delta float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, insightCall{metric: metric, current: current, expected: expected, delta: delta})
	return f.text
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

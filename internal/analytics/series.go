package analytics

import "time"

// Package analytics holds the sample-series types shared by the metric source,
// the detectors and the evaluators, plus the descriptive statistics used to
// build alert context.
//
// IMPORTANT: everything in this package and its sub-packages is pure
// computation. No I/O, no clocks, no shared state.

// Common sampling defaults for the trailing query window.
const (
	DefaultWindow = 24 * time.Hour
	DefaultStep   = 60 * time.Second
)

// DataPoint represents a single metric observation
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is one metric's trailing history, ordered oldest first.
type Series struct {
	Query  string      `json:"query"`
	Points []DataPoint `json:"points"`
}

// Len returns the number of samples in the series.
func (s Series) Len() int { return len(s.Points) }

// Empty reports whether the series carries no samples.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// Values extracts the sample values in order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, dp := range s.Points {
		values[i] = dp.Value
	}
	return values
}

// Last returns the most recent sample. ok is false for an empty series.
func (s Series) Last() (DataPoint, bool) {
	if len(s.Points) == 0 {
		return DataPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

package anomaly

import (
	"math"

	"github.com/cyraxabir/minio-anomaly-detector/internal/analytics"
)

// Package anomaly provides the two stateless detectors the evaluators are
// built on.
//
// Detection Algorithms:
//
//  1. Z-Score
//     - Population mean and standard deviation over the whole window,
//       including the latest point
//     - score = |last - mean| / stddev
//     - Anomaly iff score > threshold (strict)
//
//  2. Rate of Change
//     - Percentage change between the first and last values of the most
//       recent RecentWindow samples
//     - Anomaly iff |change| > threshold percent (strict)
//
// The z-score baseline contains the point under test, so a single large spike
// inflates both the mean and the deviation it is measured against. In short
// windows this damps sensitivity.

// RecentWindow is the number of trailing samples the rate-of-change detector
// compares.
const RecentWindow = 10

// ZScoreResult is the outcome of a z-score evaluation.
type ZScoreResult struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Score     float64 `json:"score"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// RateOfChangeResult is the outcome of a rate-of-change evaluation.
type RateOfChangeResult struct {
	IsAnomaly     bool    `json:"is_anomaly"`
	ChangePercent float64 `json:"change_percent"`
}

// ZScore flags the last value of values when it lies more than threshold
// standard deviations from the mean of the series.
//
// Fewer than two samples yield a non-anomalous result with a (0, 0) range.
// A perfectly flat series yields a non-anomalous result with the range
// collapsed to (mean, mean).
func ZScore(values []float64, threshold float64) ZScoreResult {
	if len(values) < 2 {
		return ZScoreResult{}
	}

	mean := analytics.Mean(values)
	stdDev := analytics.StdDev(values, mean)
	if stdDev == 0 {
		return ZScoreResult{Lower: mean, Upper: mean}
	}

	current := values[len(values)-1]
	score := math.Abs(current-mean) / stdDev

	return ZScoreResult{
		IsAnomaly: score > threshold,
		Score:     score,
		Lower:     mean - threshold*stdDev,
		Upper:     mean + threshold*stdDev,
	}
}

// RateOfChange flags a sudden spike or drop across the most recent samples.
//
// A zero first value in the recent window is never flagged; a 0 -> N jump
// is left to the z-score detector.
func RateOfChange(values []float64, thresholdPercent float64) RateOfChangeResult {
	if len(values) < 2 {
		return RateOfChangeResult{}
	}

	recent := values
	if len(values) > RecentWindow {
		recent = values[len(values)-RecentWindow:]
	}

	first := recent[0]
	if first == 0 {
		return RateOfChangeResult{}
	}

	change := (recent[len(recent)-1] - first) / first * 100
	return RateOfChangeResult{
		IsAnomaly:     math.Abs(change) > thresholdPercent,
		ChangePercent: change,
	}
}

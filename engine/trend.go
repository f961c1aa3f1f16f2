package engine

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// TREND SMOOTHER — Short/long rolling means, min period 1
// ============================================================================
// Position i averages the last min(window, i+1) points, so the smoothed
// series is full length and aligns 1:1 with the raw series.
// Input order is not trusted: records are sorted and same-timestamp
// measurements collapse to their mean before smoothing.
// ============================================================================

// Default rolling windows (in observations).
const (
	DefaultShortWindow = 7
	DefaultLongWindow  = 30
)

// TrendPoint is one row of the overlay: raw value plus both moving averages.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Raw       float64   `json:"raw"`
	Short     float64   `json:"shortMA"`
	Long      float64   `json:"longMA"`
}

// SmoothTrend builds the aligned (timestamp, raw, shortMA, longMA) series.
// Non-positive windows fall back to the defaults.
func SmoothTrend(records []Record, shortWindow, longWindow int) []TrendPoint {
	if shortWindow <= 0 {
		shortWindow = DefaultShortWindow
	}
	if longWindow <= 0 {
		longWindow = DefaultLongWindow
	}

	series := collapseByTimestamp(records)
	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	short := RollingMean(values, shortWindow)
	long := RollingMean(values, longWindow)

	out := make([]TrendPoint, len(series))
	for i, p := range series {
		out[i] = TrendPoint{
			Timestamp: p.Timestamp,
			Raw:       p.Value,
			Short:     short[i],
			Long:      long[i],
		}
	}
	return out
}

// RollingMean returns the trailing mean over up to window points at each position.
func RollingMean(values []float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	out := make([]float64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		out[i] = stat.Mean(values[lo:i+1], nil)
	}
	return out
}

// collapseByTimestamp sorts records by time and averages same-instant values.
func collapseByTimestamp(records []Record) []Point {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]Point, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		sum := 0.0
		for j < len(sorted) && sorted[j].Timestamp.Equal(sorted[i].Timestamp) {
			sum += sorted[j].Value
			j++
		}
		value := sorted[i].Value
		if j-i > 1 {
			value = sum / float64(j-i)
		}
		out = append(out, Point{Timestamp: sorted[i].Timestamp, Value: value})
		i = j
	}
	return out
}

package engine

import (
	"time"
)

// ============================================================================
// TEST FIXTURES
// ============================================================================

var baseDay = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// day returns baseDay shifted by n days.
func day(n int) time.Time { return baseDay.AddDate(0, 0, n) }

func limitsOf(target, upper, lower float64) *SpecLimits {
	return &SpecLimits{Target: target, Upper: upper, Lower: lower}
}

// stepRecords builds one record per value on consecutive days.
func stepRecords(step string, spec *SpecLimits, values ...float64) []Record {
	out := make([]Record, len(values))
	for i, v := range values {
		out[i] = Record{Timestamp: day(i), Step: step, Value: v, Spec: spec}
	}
	return out
}

func datasetOf(groups ...[]Record) *Dataset {
	b := NewDatasetBuilder()
	for _, g := range groups {
		for _, r := range g {
			b.Add(r)
		}
	}
	return b.Build()
}

// centredValues are ten points with mean 50.
var centredValues = []float64{44, 46, 47, 49, 50, 50, 51, 53, 54, 56}

// flatValues are ten identical points.
var flatValues = []float64{50, 50, 50, 50, 50, 50, 50, 50, 50, 50}

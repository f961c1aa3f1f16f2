package engine

import "time"

// ============================================================================
// ANOMALY DETECTOR — Out-of-control and out-of-spec records
// ============================================================================
// Two independent predicates per record:
//   outOfControl = v > UCL || v < LCL      (statistical band)
//   outOfSpec    = v > USL || v < LSL      (acceptance band)
// A record can trip either, both or neither. They are never merged.
// ============================================================================

// RecordFlag is the classification of one record.
type RecordFlag struct {
	Timestamp    time.Time `json:"timestamp"`
	Value        float64   `json:"value"`
	OutOfControl bool      `json:"outOfControl"`
	OutOfSpec    bool      `json:"outOfSpec"`
	SpecKnown    bool      `json:"specKnown"` // false when neither record nor step had spec limits
}

// Point is a (timestamp, value) pair.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// AnomalyReport holds the per-record flags and the two separate subsets.
type AnomalyReport struct {
	Step         string       `json:"step"`
	Flags        []RecordFlag `json:"flags"`
	OutOfControl []Point      `json:"outOfControl"`
	OutOfSpec    []Point      `json:"outOfSpec"`
}

// DetectAnomalies classifies records against control limits and spec limits.
// Each record is checked against its own spec limits, falling back to stepSpec.
func DetectAnomalies(step string, records []Record, limits ControlLimits, stepSpec *SpecLimits) *AnomalyReport {
	report := &AnomalyReport{
		Step:         step,
		Flags:        make([]RecordFlag, 0, len(records)),
		OutOfControl: []Point{},
		OutOfSpec:    []Point{},
	}

	for _, r := range records {
		flag := RecordFlag{
			Timestamp:    r.Timestamp,
			Value:        r.Value,
			OutOfControl: limits.OutOfControl(r.Value),
		}

		spec := r.Spec
		if spec == nil {
			spec = stepSpec
		}
		if spec != nil {
			flag.SpecKnown = true
			flag.OutOfSpec = r.Value > spec.Upper || r.Value < spec.Lower
		}

		if flag.OutOfControl {
			report.OutOfControl = append(report.OutOfControl, Point{Timestamp: r.Timestamp, Value: r.Value})
		}
		if flag.OutOfSpec {
			report.OutOfSpec = append(report.OutOfSpec, Point{Timestamp: r.Timestamp, Value: r.Value})
		}
		report.Flags = append(report.Flags, flag)
	}
	return report
}

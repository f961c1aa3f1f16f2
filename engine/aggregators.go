package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// AGGREGATORS — Descriptive statistics over a step's values
// ============================================================================
// All functions take plain []float64 pulled from a StepView.
// ============================================================================

// MeanStdDev returns the sample mean and Bessel-corrected standard deviation.
// n = 1 gives σ = 0. Identical values give σ = 0 and the common value as the
// mean exactly, with no summation drift.
func MeanStdDev(values []float64) (mean, std float64, err error) {
	switch len(values) {
	case 0:
		return 0, 0, ErrNoData
	case 1:
		return values[0], 0, nil
	}
	if isConstant(values) {
		return values[0], 0, nil
	}
	mean, std = stat.MeanStdDev(values, nil)
	return mean, std, nil
}

// MinMax returns the smallest and largest value.
func MinMax(values []float64) (lo, hi float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrNoData
	}
	return floats.Min(values), floats.Max(values), nil
}

// PercentWithinSpec is the share of records inside their spec range, in percent.
// Records without spec limits take the fallback; with neither, they are not counted.
func PercentWithinSpec(records []Record, fallback *SpecLimits) Value {
	within, counted := 0, 0
	for _, r := range records {
		spec := r.Spec
		if spec == nil {
			spec = fallback
		}
		if spec == nil {
			continue
		}
		counted++
		if spec.Contains(r.Value) {
			within++
		}
	}
	if counted == 0 {
		return NotComputable("no records with spec limits")
	}
	return Computed(float64(within) / float64(counted) * 100)
}

// StepSpec returns the spec limits of the earliest record that carries them.
func StepSpec(records []Record) *SpecLimits {
	for _, r := range records {
		if r.Spec != nil {
			spec := *r.Spec
			return &spec
		}
	}
	return nil
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatValue renders a Value with fixed decimals, or "N/A".
func FormatValue(v Value, decimals int) string {
	if !v.Valid {
		return "N/A"
	}
	return FormatFloat(v.Float, decimals)
}

// FormatFloat renders a float with fixed decimals.
func FormatFloat(f float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, f)
}

// FormatPercent renders a percentage Value as "97.5%".
func FormatPercent(v Value) string {
	if !v.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", v.Float)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo rounds to the given number of decimal places.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// DerivePeriod describes the date span covered by records.
func DerivePeriod(records []Record) string {
	if len(records) == 0 {
		return "No data"
	}
	first, last := records[0].Timestamp, records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	if civilDay(first) == civilDay(last) {
		return first.Format(time.DateOnly)
	}
	return first.Format(time.DateOnly) + " to " + last.Format(time.DateOnly)
}

// LabelForStep returns a display label for a step identifier.
func LabelForStep(step string) string {
	step = strings.ReplaceAll(step, "_", " ")
	if len(step) == 0 {
		return ""
	}
	return strings.ToUpper(step[:1]) + step[1:]
}

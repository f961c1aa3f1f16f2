package engine

import (
	"errors"
	"fmt"
)

// ============================================================================
// CONTROL LIMITS — Natural process limits (μ ± 3σ)
// ============================================================================
// Independent of spec limits. σ = 0 collapses both limits onto the mean,
// which is a valid, non-error state: a perfectly flat process.
// ============================================================================

// ErrNoData is returned when a computation needs at least one value.
var ErrNoData = errors.New("no data")

// SigmaMultiplier is the width of the control band in standard deviations.
const SigmaMultiplier = 3.0

// ControlLimits holds a step's centre line and ±3σ band.
type ControlLimits struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	UCL    float64 `json:"ucl"`
	LCL    float64 `json:"lcl"`
}

// ComputeControlLimits derives mean, sample σ and UCL/LCL from values.
func ComputeControlLimits(values []float64) (ControlLimits, error) {
	mean, std, err := MeanStdDev(values)
	if err != nil {
		return ControlLimits{}, fmt.Errorf("control limits: %w", err)
	}
	limits := ControlLimits{
		N:      len(values),
		Mean:   mean,
		StdDev: std,
		UCL:    mean,
		LCL:    mean,
	}
	if std > 0 {
		limits.UCL = mean + SigmaMultiplier*std
		limits.LCL = mean - SigmaMultiplier*std
	}
	return limits, nil
}

// Flat reports whether the process has zero variance.
func (l ControlLimits) Flat() bool { return l.StdDev == 0 }

// OutOfControl reports whether v falls outside the control band.
func (l ControlLimits) OutOfControl(v float64) bool {
	return v > l.UCL || v < l.LCL
}

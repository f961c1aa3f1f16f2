package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// CONTROL LIMIT TESTS
// ============================================================================

func TestControlLimitsBesselCorrected(t *testing.T) {
	limits, err := ComputeControlLimits([]float64{2, 4, 4, 6, 8, 6})
	require.NoError(t, err)

	assert.Equal(t, 6, limits.N)
	assert.InDelta(t, 5.0, limits.Mean, 1e-12)
	// Σ(x−5)² = 9+1+1+1+9+1 = 22; σ = √(22/5)
	assert.InDelta(t, 2.097617696340303, limits.StdDev, 1e-12)
	assert.InDelta(t, limits.Mean+3*limits.StdDev, limits.UCL, 1e-12)
	assert.InDelta(t, limits.Mean-3*limits.StdDev, limits.LCL, 1e-12)
}

func TestControlLimitsFlatProcess(t *testing.T) {
	// 0.1 summed ten times drifts in floating point; the mean must not.
	values := []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
	limits, err := ComputeControlLimits(values)
	require.NoError(t, err)

	assert.True(t, limits.Flat())
	assert.Equal(t, 0.1, limits.Mean)
	assert.Equal(t, 0.0, limits.StdDev)
	assert.Equal(t, limits.Mean, limits.UCL)
	assert.Equal(t, limits.Mean, limits.LCL)
}

func TestControlLimitsSingleValue(t *testing.T) {
	limits, err := ComputeControlLimits([]float64{42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, limits.Mean)
	assert.Equal(t, 0.0, limits.StdDev)
	assert.Equal(t, 42.0, limits.UCL)
	assert.Equal(t, 42.0, limits.LCL)
}

func TestControlLimitsEmpty(t *testing.T) {
	_, err := ComputeControlLimits(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

// With σ = 0 the band collapses onto μ: anything else is out of control.
func TestOutOfControlCollapsedBand(t *testing.T) {
	limits, err := ComputeControlLimits(flatValues)
	require.NoError(t, err)

	assert.False(t, limits.OutOfControl(50))
	for _, v := range []float64{49.999999, 50.000001, 0, -50, 1e9} {
		assert.True(t, limits.OutOfControl(v), "value %v", v)
	}
}

func TestMeanStdDevMatchesSampleFormula(t *testing.T) {
	mean, std, err := MeanStdDev(centredValues)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, mean, 1e-12)
	// Σ(x−50)² = 36+16+9+1+0+0+1+9+16+36 = 124; σ = √(124/9)
	assert.InDelta(t, 3.711842908553348, std, 1e-12)
}

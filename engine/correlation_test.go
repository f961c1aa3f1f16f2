package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// CORRELATION ENGINE TESTS
// ============================================================================

func TestPearsonLinear(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{3, 5, 7, 9, 11}
	neg := []float64{-1, -2, -3, -4, -5}

	r := Pearson(xs, ys)
	require.True(t, r.Valid)
	assert.InDelta(t, 1.0, r.Float, 1e-12)

	r = Pearson(xs, neg)
	require.True(t, r.Valid)
	assert.InDelta(t, -1.0, r.Float, 1e-12)
	assert.GreaterOrEqual(t, r.Float, -1.0)
}

func TestPearsonNotComputable(t *testing.T) {
	assert.Equal(t, ReasonTooFewPairs, Pearson(nil, nil).Reason)
	assert.Equal(t, ReasonTooFewPairs, Pearson([]float64{1}, []float64{2}).Reason)
	assert.Equal(t, ReasonTooFewPairs, Pearson([]float64{1, 2}, []float64{2}).Reason)
	assert.Equal(t, ReasonFlatOnOverlap, Pearson([]float64{1, 2, 3}, []float64{4, 4, 4}).Reason)
}

func TestBuildPivotSparseCells(t *testing.T) {
	ds := datasetOf(
		stepRecords("cut", nil, 1, 2, 3),
		[]Record{
			{Timestamp: day(1), Step: "coat", Value: 10},
			{Timestamp: day(1), Step: "coat", Value: 20},
			{Timestamp: day(5), Step: "coat", Value: 7},
		},
	)
	sel, err := ds.Select(Filter{})
	require.NoError(t, err)

	p := BuildPivot(sel)
	assert.Equal(t, []string{"cut", "coat"}, p.Steps)
	assert.Equal(t, []time.Time{day(0), day(1), day(2), day(5)}, p.Timestamps)

	v, ok := p.Cell(day(1), "coat")
	require.True(t, ok)
	assert.Equal(t, 15.0, v, "same-day duplicates average")

	_, ok = p.Cell(day(0), "coat")
	assert.False(t, ok, "missing cells stay absent")
	_, ok = p.Cell(day(0), "nope")
	assert.False(t, ok)
}

func TestCorrelationMatrixPairwiseComplete(t *testing.T) {
	ds := datasetOf(
		stepRecords("a", nil, 1, 2, 3, 4, 5, 6),
		// b only overlaps a on days 0..3 and is perfectly linear there
		[]Record{
			{Timestamp: day(0), Step: "b", Value: 10},
			{Timestamp: day(1), Step: "b", Value: 20},
			{Timestamp: day(2), Step: "b", Value: 30},
			{Timestamp: day(3), Step: "b", Value: 40},
			{Timestamp: day(20), Step: "b", Value: -100},
		},
		// c shares a single day with a
		[]Record{{Timestamp: day(4), Step: "c", Value: 3}, {Timestamp: day(30), Step: "c", Value: 4}},
	)
	sel, err := ds.Select(Filter{})
	require.NoError(t, err)

	m := CorrelationMatrix(BuildPivot(sel))
	require.Equal(t, []string{"a", "b", "c"}, m.Steps)

	ab, ok := m.Get("a", "b")
	require.True(t, ok)
	require.True(t, ab.Valid)
	assert.InDelta(t, 1.0, ab.Float, 1e-12)
	assert.Equal(t, 4, m.Overlap[0][1])

	ac, _ := m.Get("a", "c")
	assert.False(t, ac.Valid)
	assert.Equal(t, ReasonTooFewPairs, ac.Reason)

	bc, _ := m.Get("b", "c")
	assert.False(t, bc.Valid)

	_, ok = m.Get("a", "missing")
	assert.False(t, ok)
}

func TestCorrelationMatrixSymmetricUnitDiagonal(t *testing.T) {
	ds := datasetOf(
		stepRecords("a", nil, 3, 1, 4, 1, 5, 9, 2, 6),
		stepRecords("b", nil, 2, 7, 1, 8, 2, 8, 1, 8),
		stepRecords("c", nil, flatValues[:8]...),
	)
	sel, err := ds.Select(Filter{})
	require.NoError(t, err)
	m := CorrelationMatrix(BuildPivot(sel))

	for i := range m.Steps {
		assert.Equal(t, Computed(1), m.Values[i][i], "diagonal %s", m.Steps[i])
		for j := range m.Steps {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			if v := m.Values[i][j]; v.Valid {
				assert.LessOrEqual(t, v.Float, 1.0)
				assert.GreaterOrEqual(t, v.Float, -1.0)
			}
		}
	}

	// A flat column still has an exact 1 on the diagonal but nothing off it.
	ac, _ := m.Get("a", "c")
	assert.Equal(t, ReasonFlatOnOverlap, ac.Reason)
}

// Narrowing the date range keeps a column fully overlapping itself.
func TestCorrelationSelfUnderShiftedFilter(t *testing.T) {
	ds := datasetOf(
		stepRecords("a", nil, centredValues...),
		stepRecords("b", nil, 9, 3, 4, 8, 1, 6, 2, 7, 5, 0),
	)
	report, err := Analyze(ds, Filter{From: day(3), To: day(8)})
	require.NoError(t, err)
	require.NotNil(t, report.Correlation)

	aa, ok := report.Correlation.Get("a", "a")
	require.True(t, ok)
	assert.Equal(t, 1.0, aa.Float)
	assert.True(t, aa.Valid)
	assert.Equal(t, 6, report.Correlation.Overlap[0][0])
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDistributionQuartilesAndOutliers(t *testing.T) {
	values := []float64{100, 7, 1, 6, 2, 5, 3, 4}
	d, err := ComputeDistribution(values, 0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 100.0, d.Max)
	assert.InDelta(t, 2.0, d.Q1, 1e-12)
	assert.InDelta(t, 4.0, d.Median, 1e-12)
	assert.InDelta(t, 6.0, d.Q3, 1e-12)
	assert.InDelta(t, 4.0, d.IQR, 1e-12)

	assert.Equal(t, []float64{100}, d.Outliers)
	assert.Equal(t, 1.0, d.LowerWhisker)
	assert.Equal(t, 7.0, d.UpperWhisker)

	require.Len(t, d.Bins, 4)
	counts := make([]int, len(d.Bins))
	for i, b := range d.Bins {
		counts[i] = b.Count
	}
	assert.Equal(t, []int{7, 0, 0, 1}, counts)
	assert.Equal(t, 1.0, d.Bins[0].Lower)
	assert.Equal(t, 100.0, d.Bins[3].Upper)

	assert.Equal(t, []float64{100, 7, 1, 6, 2, 5, 3, 4}, values, "input untouched")
}

func TestComputeDistributionFixedBins(t *testing.T) {
	d, err := ComputeDistribution([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 2)
	require.NoError(t, err)
	require.Len(t, d.Bins, 2)
	assert.Equal(t, 4, d.Bins[0].Count)
	assert.Equal(t, 4, d.Bins[1].Count)
	assert.InDelta(t, 4.5, d.Bins[0].Upper, 1e-12)
}

func TestComputeDistributionFlat(t *testing.T) {
	d, err := ComputeDistribution(flatValues, 0)
	require.NoError(t, err)

	assert.Equal(t, 0.0, d.IQR)
	assert.Empty(t, d.Outliers)
	assert.Equal(t, 50.0, d.LowerWhisker)
	assert.Equal(t, 50.0, d.UpperWhisker)
	assert.Equal(t, []Bin{{Lower: 50, Upper: 50, Count: 10}}, d.Bins)
}

func TestComputeDistributionEmpty(t *testing.T) {
	_, err := ComputeDistribution(nil, 0)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSturgesBins(t *testing.T) {
	assert.Equal(t, 1, SturgesBins(0))
	assert.Equal(t, 1, SturgesBins(1))
	assert.Equal(t, 4, SturgesBins(8))
	assert.Equal(t, 5, SturgesBins(10))
	assert.Equal(t, MaxHistogramBins, SturgesBins(1<<60))
}

func TestAnalyzeAttachesDistribution(t *testing.T) {
	report, err := Analyze(datasetOf(stepRecords("weld", limitsOf(50, 70, 30), centredValues...)), Filter{})
	require.NoError(t, err)

	d := report.Step("weld").Distribution
	require.NotNil(t, d)
	assert.InDelta(t, 50.0, d.Median, 1e-12)
	assert.Equal(t, 44.0, d.Min)
	assert.Equal(t, 56.0, d.Max)

	table := BuildDistributionTable(report)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "weld", table.Rows[0][0])
	assert.Equal(t, "50.000", table.Rows[0][3])
	assert.Equal(t, "0", table.Rows[0][7])
}

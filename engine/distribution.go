package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// DISTRIBUTION — Box-plot quartiles and histogram per step
// ============================================================================
// Quartiles use stat.LinInterp on the sorted values. Fences sit 1.5·IQR
// beyond Q1/Q3; whiskers end at the most extreme values inside the fences.
// Bin count follows Sturges' rule unless the caller asks for a fixed count.
// ============================================================================

// MaxHistogramBins caps the automatic bin count.
const MaxHistogramBins = 50

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Distribution summarises the shape of a step's values.
type Distribution struct {
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	IQR          float64   `json:"iqr"`
	LowerWhisker float64   `json:"lowerWhisker"`
	UpperWhisker float64   `json:"upperWhisker"`
	Outliers     []float64 `json:"outliers"`
	Bins         []Bin     `json:"bins"`
}

// ComputeDistribution derives quartiles, whiskers, outliers and a histogram.
// bins <= 0 picks the count automatically. values is not modified.
func ComputeDistribution(values []float64, bins int) (*Distribution, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d := &Distribution{
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Q1:       stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median:   stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		Q3:       stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Outliers: []float64{},
	}
	d.IQR = d.Q3 - d.Q1

	lowFence, highFence := d.Q1-1.5*d.IQR, d.Q3+1.5*d.IQR
	d.LowerWhisker, d.UpperWhisker = d.Max, d.Min
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			d.Outliers = append(d.Outliers, v)
			continue
		}
		d.LowerWhisker = math.Min(d.LowerWhisker, v)
		d.UpperWhisker = math.Max(d.UpperWhisker, v)
	}

	d.Bins = histogram(sorted, bins)
	return d, nil
}

// SturgesBins returns ceil(log2 n) + 1, capped at MaxHistogramBins.
func SturgesBins(n int) int {
	if n < 1 {
		return 1
	}
	k := int(math.Ceil(math.Log2(float64(n)))) + 1
	return min(k, MaxHistogramBins)
}

// histogram buckets sorted values into equal-width bins over [min, max].
func histogram(sorted []float64, bins int) []Bin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(sorted)}}
	}
	if bins <= 0 {
		bins = SturgesBins(len(sorted))
	}

	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// The last bucket must include the maximum.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Upper = hi
	return out
}

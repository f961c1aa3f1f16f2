package engine

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// CORRELATION ENGINE — Date pivot + pairwise-complete Pearson matrix
// ============================================================================
// Pivot: rows = distinct timestamps (ascending), columns = steps.
// Missing (timestamp, step) cells stay absent, never zero-filled.
// Same-timestamp duplicates within a step are averaged.
//
// Each pair of columns is correlated over the timestamps present in both.
// ============================================================================

// Pivot is a sparse timestamp × step table of measurements.
type Pivot struct {
	Timestamps []time.Time
	Steps      []string
	cells      map[string]map[int64]float64 // step → unix nanos → value
}

// BuildPivot pivots a selection. Only steps with at least one record become columns.
func BuildPivot(sel *Selection) *Pivot {
	p := &Pivot{cells: make(map[string]map[int64]float64)}
	seen := make(map[int64]time.Time)

	for _, step := range sel.Steps() {
		view := sel.Step(step)
		if view.Len() == 0 {
			continue
		}
		col := make(map[int64]float64)
		for _, pt := range collapseByTimestamp(view.Records()) {
			key := pt.Timestamp.UnixNano()
			col[key] = pt.Value
			if _, ok := seen[key]; !ok {
				seen[key] = pt.Timestamp
			}
		}
		p.Steps = append(p.Steps, step)
		p.cells[step] = col
	}

	p.Timestamps = make([]time.Time, 0, len(seen))
	for _, t := range seen {
		p.Timestamps = append(p.Timestamps, t)
	}
	sort.Slice(p.Timestamps, func(i, j int) bool { return p.Timestamps[i].Before(p.Timestamps[j]) })
	return p
}

// Cell returns the value for (timestamp, step) and whether it is present.
func (p *Pivot) Cell(t time.Time, step string) (float64, bool) {
	col, ok := p.cells[step]
	if !ok {
		return 0, false
	}
	v, ok := col[t.UnixNano()]
	return v, ok
}

// paired returns the aligned values of two columns over their shared timestamps.
func (p *Pivot) paired(a, b string) (xs, ys []float64) {
	colA, colB := p.cells[a], p.cells[b]
	for _, t := range p.Timestamps {
		key := t.UnixNano()
		x, okA := colA[key]
		y, okB := colB[key]
		if okA && okB {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// ============================================================================
// MATRIX
// ============================================================================

// Matrix is a symmetric step × step correlation table with unit diagonal.
type Matrix struct {
	Steps   []string  `json:"steps"`
	Values  [][]Value `json:"values"`
	Overlap [][]int   `json:"overlap"` // shared timestamps per pair
}

// Get returns the coefficient for a pair of steps.
func (m *Matrix) Get(a, b string) (Value, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return Value{}, false
	}
	return m.Values[i][j], true
}

func (m *Matrix) index(step string) int {
	for i, s := range m.Steps {
		if s == step {
			return i
		}
	}
	return -1
}

// CorrelationMatrix computes pairwise-complete Pearson coefficients for every column.
func CorrelationMatrix(p *Pivot) *Matrix {
	n := len(p.Steps)
	m := &Matrix{
		Steps:   append([]string(nil), p.Steps...),
		Values:  make([][]Value, n),
		Overlap: make([][]int, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]Value, n)
		m.Overlap[i] = make([]int, n)
	}

	for i := 0; i < n; i++ {
		m.Values[i][i] = Computed(1)
		m.Overlap[i][i] = len(p.cells[p.Steps[i]])
		for j := i + 1; j < n; j++ {
			xs, ys := p.paired(p.Steps[i], p.Steps[j])
			v := Pearson(xs, ys)
			m.Values[i][j], m.Values[j][i] = v, v
			m.Overlap[i][j], m.Overlap[j][i] = len(xs), len(xs)
		}
	}
	return m
}

// Pearson returns the correlation coefficient of two aligned samples.
func Pearson(xs, ys []float64) Value {
	if len(xs) != len(ys) || len(xs) < 2 {
		return NotComputable(ReasonTooFewPairs)
	}
	if isConstant(xs) || isConstant(ys) {
		return NotComputable(ReasonFlatOnOverlap)
	}
	r := stat.Correlation(xs, ys, nil)
	// Rounding can push |r| a hair past 1.
	return Computed(math.Max(-1, math.Min(1, r)))
}

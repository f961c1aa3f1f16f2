package engine

import (
	"encoding/json"
	"math"
	"time"
)

// ============================================================================
// INSPEKT ENGINE TYPES — Inspection Records + SPC Results
// ============================================================================
// Record is the only input shape. Everything else is derived, ephemeral output:
// recomputed from the filtered Dataset on every Analyze call.
// ============================================================================

// ============================================================================
// RECORD — One measurement event
// ============================================================================

// Record is a single inspection measurement.
type Record struct {
	Timestamp time.Time   `json:"timestamp"`
	Step      string      `json:"step"`
	Value     float64     `json:"value"`
	Spec      *SpecLimits `json:"spec,omitempty"` // nil when the source row carried no spec columns
}

// SpecLimits is the nominal value and acceptance range for a step.
type SpecLimits struct {
	Target float64 `json:"target"`
	Upper  float64 `json:"upperSpec"`
	Lower  float64 `json:"lowerSpec"`
}

// Inverted reports whether the lower limit sits above the upper limit.
func (s SpecLimits) Inverted() bool { return s.Lower > s.Upper }

// TargetOutside reports whether the target falls outside [Lower, Upper].
func (s SpecLimits) TargetOutside() bool { return s.Target < s.Lower || s.Target > s.Upper }

// Contains reports whether v lies within the inclusive spec range.
func (s SpecLimits) Contains(v float64) bool { return v >= s.Lower && v <= s.Upper }

// ============================================================================
// VALUE — Computed quantity that may be undefined
// ============================================================================

// Value is a derived number that is either computed or explicitly not computable.
// It never carries NaN or Inf; JSON encodes as a number or null.
type Value struct {
	Float  float64 `json:"-"`
	Valid  bool    `json:"-"`
	Reason string  `json:"-"`
}

// Computed wraps a finite number. Non-finite input is reported as not computable.
func Computed(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotComputable("non-finite result")
	}
	return Value{Float: v, Valid: true}
}

// NotComputable returns an undefined Value with the reason it could not be derived.
func NotComputable(reason string) Value {
	return Value{Reason: reason}
}

// Or returns the float, or fallback when not computable.
func (v Value) Or(fallback float64) float64 {
	if !v.Valid {
		return fallback
	}
	return v.Float
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = NotComputable("")
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Computed(f)
	return nil
}

// ============================================================================
// STEP STATISTICS — Per-step SPC summary
// ============================================================================

// StepStatistics is the full per-step result: descriptive stats, natural
// process limits, capability indices and spec compliance.
type StepStatistics struct {
	Step   string  `json:"step"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	UCL    float64 `json:"ucl"`
	LCL    float64 `json:"lcl"`

	// Capability is nil when the step carries no spec limits.
	Capability *Capability `json:"capability,omitempty"`
	Spec       *SpecLimits `json:"spec,omitempty"`

	PercentWithinSpec Value `json:"percentWithinSpec"`
}

// StepReport groups everything computed for one step.
// Statistics is nil when the step had no records after filtering.
type StepReport struct {
	Step         string          `json:"step"`
	Statistics   *StepStatistics `json:"statistics,omitempty"`
	Anomalies    *AnomalyReport  `json:"anomalies,omitempty"`
	Distribution *Distribution   `json:"distribution,omitempty"`
	Trend        []TrendPoint    `json:"trend,omitempty"`
	Issues       []string        `json:"issues,omitempty"`
}

// Overview is the dataset-wide headline for the current filter.
type Overview struct {
	TotalInspections  int    `json:"totalInspections"`
	StepCount         int    `json:"stepCount"`
	MeanValue         Value  `json:"meanValue"`
	PercentWithinSpec Value  `json:"percentWithinSpec"`
	Cp                Value  `json:"cp"`
	Period            string `json:"period"`
}

// Report is the engine's render-ready output for one (dataset, filter) pair.
type Report struct {
	DatasetVersion string       `json:"datasetVersion"`
	Filter         Filter       `json:"filter"`
	Overview       Overview     `json:"overview"`
	Steps          []StepReport `json:"steps"`
	Correlation    *Matrix      `json:"correlation,omitempty"`
}

// Step returns the report for a step, or nil.
func (r *Report) Step(step string) *StepReport {
	for i := range r.Steps {
		if r.Steps[i].Step == step {
			return &r.Steps[i]
		}
	}
	return nil
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig describes a series overlay chart. Rendering is left to the consumer.
type ChartConfig struct {
	ChartType  string          `json:"chartType"`
	Title      string          `json:"title"`
	XAxis      string          `json:"xAxis,omitempty"`
	YAxis      string          `json:"yAxis,omitempty"`
	Series     []ChartSeries   `json:"series"`
	Lines      []ReferenceLine `json:"lines,omitempty"`
	Colors     []string        `json:"colors,omitempty"`
	ShowLegend bool            `json:"showLegend"`
	ShowGrid   bool            `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Mode  string       `json:"mode,omitempty"` // "lines", "markers", "lines+markers"
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ReferenceLine is a horizontal marker such as UCL or a spec limit.
type ReferenceLine struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Dash  string  `json:"dash"` // "solid", "dash", "dot", "dashdot"
	Color string  `json:"color"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "percent"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

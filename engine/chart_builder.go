package engine

// ============================================================================
// CHART BUILDER — Control chart and trend overlay series
// ============================================================================
// Produces data only. Line styles follow the usual SPC conventions:
// centre line solid, control limits dashed, spec limits dotted.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

const timeLabelLayout = "2006-01-02T15:04:05"

// BuildControlChart plots a step's raw values with centre line, control and spec limits.
// Returns nil when the step has no statistics.
func BuildControlChart(sr StepReport) *ChartConfig {
	s := sr.Statistics
	if s == nil || sr.Anomalies == nil {
		return nil
	}

	points := make([]ChartPoint, 0, len(sr.Anomalies.Flags))
	for _, f := range sr.Anomalies.Flags {
		points = append(points, ChartPoint{Label: f.Timestamp.Format(timeLabelLayout), Value: f.Value})
	}

	lines := []ReferenceLine{
		{Label: "Mean", Value: RoundTo(s.Mean, 4), Dash: "solid", Color: "green"},
		{Label: "UCL", Value: RoundTo(s.UCL, 4), Dash: "dash", Color: "red"},
		{Label: "LCL", Value: RoundTo(s.LCL, 4), Dash: "dash", Color: "red"},
	}
	if s.Spec != nil {
		lines = append(lines,
			ReferenceLine{Label: "Upper Spec", Value: s.Spec.Upper, Dash: "dot", Color: "orange"},
			ReferenceLine{Label: "Lower Spec", Value: s.Spec.Lower, Dash: "dot", Color: "orange"},
			ReferenceLine{Label: "Target", Value: s.Spec.Target, Dash: "dashdot", Color: "darkgreen"},
		)
	}

	series := []ChartSeries{{Name: "Measured", Mode: "lines+markers", Data: points}}
	return &ChartConfig{
		ChartType:  "line",
		Title:      LabelForStep(sr.Step) + " SPC Control Chart",
		XAxis:      "Date",
		YAxis:      "Value",
		Series:     series,
		Lines:      lines,
		Colors:     assignColors(len(series)),
		ShowLegend: true,
		ShowGrid:   true,
	}
}

// BuildTrendChart overlays raw values with the short and long moving averages.
// Returns nil when the step has no trend.
func BuildTrendChart(sr StepReport) *ChartConfig {
	if len(sr.Trend) == 0 {
		return nil
	}

	raw := make([]ChartPoint, len(sr.Trend))
	short := make([]ChartPoint, len(sr.Trend))
	long := make([]ChartPoint, len(sr.Trend))
	for i, p := range sr.Trend {
		label := p.Timestamp.Format(timeLabelLayout)
		raw[i] = ChartPoint{Label: label, Value: p.Raw}
		short[i] = ChartPoint{Label: label, Value: RoundTo(p.Short, 4)}
		long[i] = ChartPoint{Label: label, Value: RoundTo(p.Long, 4)}
	}

	series := []ChartSeries{
		{Name: "Measured", Mode: "markers", Data: raw},
		{Name: "Short MA", Mode: "lines", Data: short},
		{Name: "Long MA", Mode: "lines", Data: long},
	}
	for i := range series {
		series[i].Color = defaultColors[i%len(defaultColors)]
	}

	config := &ChartConfig{
		ChartType:  "line",
		Title:      LabelForStep(sr.Step) + " Trend",
		XAxis:      "Date",
		YAxis:      "Value",
		Series:     series,
		Colors:     assignColors(len(series)),
		ShowLegend: true,
		ShowGrid:   true,
	}
	if s := sr.Statistics; s != nil && s.Spec != nil {
		config.Lines = []ReferenceLine{
			{Label: "USL", Value: s.Spec.Upper, Dash: "dash", Color: "red"},
			{Label: "LSL", Value: s.Spec.Lower, Dash: "dash", Color: "red"},
			{Label: "Target", Value: s.Spec.Target, Dash: "dash", Color: "green"},
		}
	}
	return config
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Capability, statistics and correlation tables
// ============================================================================
// Builders read a finished Report; nothing here recomputes statistics.
// ============================================================================

// BuildCapabilityTable lists Cp/Cpk/Cpm per step in report order.
// Steps without spec limits or without data are excluded.
func BuildCapabilityTable(r *Report) *TableData {
	columns := []Column{
		{Key: "step", Label: "Step", Type: "text", Align: "left"},
		{Key: "cp", Label: "Cp", Type: "number", Align: "right"},
		{Key: "cpk", Label: "Cpk", Type: "number", Align: "right"},
		{Key: "cpm", Label: "Cpm", Type: "number", Align: "right"},
		{Key: "mean", Label: "Mean", Type: "number", Align: "right"},
		{Key: "std_dev", Label: "Std Dev", Type: "number", Align: "right"},
		{Key: "grade", Label: "Grade", Type: "text", Align: "center"},
	}

	rows := make([][]string, 0, len(r.Steps))
	graded := 0
	for _, sr := range r.Steps {
		s := sr.Statistics
		if s == nil || s.Capability == nil {
			continue
		}
		c := s.Capability
		grade := "N/A"
		if c.Grade != "" {
			grade = string(c.Grade)
			graded++
		}
		rows = append(rows, []string{
			sr.Step,
			FormatValue(c.Cp, 3),
			FormatValue(c.Cpk, 3),
			FormatValue(c.Cpm, 3),
			FormatFloat(s.Mean, 3),
			FormatFloat(s.StdDev, 3),
			grade,
		})
	}

	return &TableData{
		Title:   "Process Capability",
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("%d step(s)", len(rows)),
			Values: map[string]string{
				"grade": fmt.Sprintf("%d graded", graded),
			},
		},
	}
}

// BuildStatisticsTable lists descriptive statistics and spec compliance per step.
func BuildStatisticsTable(r *Report) *TableData {
	columns := []Column{
		{Key: "step", Label: "Step", Type: "text", Align: "left"},
		{Key: "count", Label: "Count", Type: "number", Align: "right"},
		{Key: "mean", Label: "Mean", Type: "number", Align: "right"},
		{Key: "std_dev", Label: "Std Dev", Type: "number", Align: "right"},
		{Key: "min", Label: "Min", Type: "number", Align: "right"},
		{Key: "max", Label: "Max", Type: "number", Align: "right"},
		{Key: "ucl", Label: "UCL", Type: "number", Align: "right"},
		{Key: "lcl", Label: "LCL", Type: "number", Align: "right"},
		{Key: "within_spec", Label: "Within Spec", Type: "percent", Align: "right"},
	}

	rows := make([][]string, 0, len(r.Steps))
	total := 0
	for _, sr := range r.Steps {
		s := sr.Statistics
		if s == nil {
			continue
		}
		total += s.Count
		rows = append(rows, []string{
			sr.Step,
			fmt.Sprintf("%d", s.Count),
			FormatFloat(s.Mean, 3),
			FormatFloat(s.StdDev, 3),
			FormatFloat(s.Min, 3),
			FormatFloat(s.Max, 3),
			FormatFloat(s.UCL, 3),
			FormatFloat(s.LCL, 3),
			FormatPercent(s.PercentWithinSpec),
		})
	}

	return &TableData{
		Title:   "Descriptive Statistics",
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"count":       FormatInt(total),
				"within_spec": FormatPercent(r.Overview.PercentWithinSpec),
			},
		},
	}
}

// BuildCorrelationTable renders the correlation matrix as a square table.
func BuildCorrelationTable(m *Matrix) *TableData {
	if m == nil {
		return &TableData{Title: "Step Correlation", Columns: []Column{}, Rows: [][]string{}}
	}

	columns := make([]Column, 0, len(m.Steps)+1)
	columns = append(columns, Column{Key: "step", Label: "Step", Type: "text", Align: "left"})
	for _, step := range m.Steps {
		columns = append(columns, Column{Key: step, Label: LabelForStep(step), Type: "number", Align: "right"})
	}

	rows := make([][]string, 0, len(m.Steps))
	for i, step := range m.Steps {
		row := make([]string, 0, len(m.Steps)+1)
		row = append(row, step)
		for j := range m.Steps {
			row = append(row, FormatValue(m.Values[i][j], 3))
		}
		rows = append(rows, row)
	}

	return &TableData{Title: "Step Correlation", Columns: columns, Rows: rows}
}

// BuildAnomalyTable lists flagged records for one step.
func BuildAnomalyTable(a *AnomalyReport) *TableData {
	columns := []Column{
		{Key: "timestamp", Label: "Date", Type: "text", Align: "left"},
		{Key: "value", Label: "Value", Type: "number", Align: "right"},
		{Key: "out_of_control", Label: "Out of Control", Type: "text", Align: "center"},
		{Key: "out_of_spec", Label: "Out of Spec", Type: "text", Align: "center"},
	}
	if a == nil {
		return &TableData{Title: "Anomalies", Columns: columns, Rows: [][]string{}}
	}

	rows := make([][]string, 0)
	for _, f := range a.Flags {
		if !f.OutOfControl && !f.OutOfSpec {
			continue
		}
		rows = append(rows, []string{
			f.Timestamp.Format("2006-01-02 15:04:05"),
			FormatFloat(f.Value, 3),
			yesNo(f.OutOfControl),
			yesNo(f.OutOfSpec),
		})
	}

	return &TableData{
		Title:   "Anomalies: " + a.Step,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"out_of_control": fmt.Sprintf("%d", len(a.OutOfControl)),
				"out_of_spec":    fmt.Sprintf("%d", len(a.OutOfSpec)),
			},
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// BuildDistributionTable lists box-plot statistics per step.
func BuildDistributionTable(r *Report) *TableData {
	columns := []Column{
		{Key: "step", Label: "Step", Type: "text", Align: "left"},
		{Key: "min", Label: "Min", Type: "number", Align: "right"},
		{Key: "q1", Label: "Q1", Type: "number", Align: "right"},
		{Key: "median", Label: "Median", Type: "number", Align: "right"},
		{Key: "q3", Label: "Q3", Type: "number", Align: "right"},
		{Key: "max", Label: "Max", Type: "number", Align: "right"},
		{Key: "iqr", Label: "IQR", Type: "number", Align: "right"},
		{Key: "outliers", Label: "Outliers", Type: "number", Align: "right"},
	}

	rows := make([][]string, 0, len(r.Steps))
	for _, sr := range r.Steps {
		d := sr.Distribution
		if d == nil {
			continue
		}
		rows = append(rows, []string{
			sr.Step,
			FormatFloat(d.Min, 3),
			FormatFloat(d.Q1, 3),
			FormatFloat(d.Median, 3),
			FormatFloat(d.Q3, 3),
			FormatFloat(d.Max, 3),
			FormatFloat(d.IQR, 3),
			fmt.Sprintf("%d", len(d.Outliers)),
		})
	}
	return &TableData{Title: "Distribution", Columns: columns, Rows: rows}
}

package engine

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// TEXT BUILDER — Overview metrics and plain-text summary
// ============================================================================

// BuildOverview computes the headline numbers for a selection:
// total inspections, mean value, overall within-spec rate and overall Cp.
// Overall Cp pools every selected value and uses the earliest record's spec limits.
func BuildOverview(sel *Selection) Overview {
	records := sel.Records()
	ov := Overview{
		TotalInspections:  len(records),
		MeanValue:         NotComputable(ReasonNoRecords),
		PercentWithinSpec: NotComputable(ReasonNoRecords),
		Cp:                NotComputable(ReasonNoRecords),
		Period:            DerivePeriod(records),
	}
	for _, step := range sel.Steps() {
		if sel.Step(step).Len() > 0 {
			ov.StepCount++
		}
	}
	if len(records) == 0 {
		return ov
	}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}

	ov.MeanValue = Computed(stat.Mean(values, nil))
	ov.PercentWithinSpec = PercentWithinSpec(records, nil)

	spec := StepSpec(records)
	if spec == nil {
		ov.Cp = NotComputable(ReasonNoSpecLimits)
		return ov
	}
	mean, std, _ := MeanStdDev(values)
	ov.Cp = ComputeCapability(mean, std, *spec).Cp
	return ov
}

// BuildSummary renders a report as human-readable lines.
func BuildSummary(r *Report) string {
	var b strings.Builder
	ov := r.Overview

	fmt.Fprintf(&b, "Inspections: %s across %d step(s), %s\n",
		FormatInt(ov.TotalInspections), ov.StepCount, ov.Period)
	fmt.Fprintf(&b, "Mean value: %s   Within spec: %s   Cp: %s\n",
		FormatValue(ov.MeanValue, 2), FormatPercent(ov.PercentWithinSpec), FormatValue(ov.Cp, 2))

	for _, sr := range r.Steps {
		b.WriteString("\n")
		b.WriteString(StepSummaryLine(sr))
		b.WriteString("\n")
		for _, issue := range sr.Issues {
			fmt.Fprintf(&b, "  ! %s\n", issue)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// StepSummaryLine renders one step as a single line.
func StepSummaryLine(sr StepReport) string {
	s := sr.Statistics
	if s == nil {
		return fmt.Sprintf("%s: no data", sr.Step)
	}

	line := fmt.Sprintf("%s: n=%d mean=%.3f sd=%.3f UCL=%.3f LCL=%.3f within-spec=%s",
		sr.Step, s.Count, s.Mean, s.StdDev, s.UCL, s.LCL, FormatPercent(s.PercentWithinSpec))
	if c := s.Capability; c != nil {
		line += fmt.Sprintf(" Cp=%s Cpk=%s Cpm=%s",
			FormatValue(c.Cp, 3), FormatValue(c.Cpk, 3), FormatValue(c.Cpm, 3))
		if c.Grade != "" {
			line += " grade=" + string(c.Grade)
		}
	}
	if a := sr.Anomalies; a != nil {
		line += fmt.Sprintf(" out-of-control=%d out-of-spec=%d", len(a.OutOfControl), len(a.OutOfSpec))
	}
	return line
}

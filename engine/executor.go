package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// EXECUTOR — Analysis pipeline
// ============================================================================
// Entry point: Analyze(dataset, filter, opts...)
//
// Pipeline:
//   1. Apply filter → Selection (zero-copy)
//   2. Per step (independent, optionally parallel):
//        control limits → capability → anomalies → trend
//   3. Overview across the whole selection
//   4. Correlation matrix when two or more steps have data
//   5. Return Report
//
// Every call recomputes from scratch. Callers that want reuse hold a ReportCache.
// A step's problems are reported in its Issues and never abort other steps.
// ============================================================================

// Analyze runs the full SPC pipeline over the filtered dataset.
func Analyze(ds *Dataset, filter Filter, opts ...Option) (*Report, error) {
	cfg := applyOptions(opts)
	start := time.Now()

	sel, err := ds.Select(filter)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	cfg.Logger.Debug("selection built",
		zap.String("dataset", ds.Version()),
		zap.Int("records", ds.Len()),
		zap.Int("selected", sel.Len()),
		zap.Strings("steps", sel.Steps()),
	)

	report := &Report{
		DatasetVersion: ds.Version(),
		Filter:         filter,
		Steps:          analyzeSteps(sel, cfg),
	}
	report.Overview = BuildOverview(sel)

	pivot := BuildPivot(sel)
	if len(pivot.Steps) > 1 {
		report.Correlation = CorrelationMatrix(pivot)
	}

	for _, sr := range report.Steps {
		for _, issue := range sr.Issues {
			cfg.Logger.Warn("step issue", zap.String("step", sr.Step), zap.String("issue", issue))
		}
	}

	elapsed := time.Since(start)
	cfg.Logger.Info("analysis complete",
		zap.String("dataset", ds.Version()),
		zap.Int("selected", sel.Len()),
		zap.Int("steps", len(report.Steps)),
		zap.Duration("elapsed", elapsed),
	)
	if cfg.Observer != nil {
		cfg.Observer.ObserveAnalysis(report, elapsed)
	}
	return report, nil
}

// analyzeSteps computes each step's report, fanning out up to cfg.Parallelism.
// Output order always follows the selection's step order.
func analyzeSteps(sel *Selection, cfg *config) []StepReport {
	steps := sel.Steps()
	out := make([]StepReport, len(steps))

	if cfg.Parallelism <= 1 || len(steps) < 2 {
		for i, step := range steps {
			out[i] = AnalyzeStep(sel, step, cfg.ShortWindow, cfg.LongWindow)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(cfg.Parallelism)
	for i, step := range steps {
		i, step := i, step // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			out[i] = AnalyzeStep(sel, step, cfg.ShortWindow, cfg.LongWindow)
			return nil
		})
	}
	_ = g.Wait() // workers never fail; issues are carried in each StepReport
	return out
}

// AnalyzeStep computes statistics, anomalies and trend for one selected step.
func AnalyzeStep(sel *Selection, step string, shortWindow, longWindow int) StepReport {
	sr := StepReport{Step: step}
	view := sel.Step(step)

	if view.Len() == 0 {
		if !sel.Dataset().HasStep(step) {
			sr.Issues = append(sr.Issues, "step not present in dataset")
		} else {
			sr.Issues = append(sr.Issues, "no records match the filter")
		}
		return sr
	}

	records := view.Records()
	values := view.Values()

	limits, err := ComputeControlLimits(values)
	if err != nil {
		sr.Issues = append(sr.Issues, err.Error())
		return sr
	}
	lo, hi, _ := MinMax(values)
	spec := StepSpec(records)

	stats := &StepStatistics{
		Step:              step,
		Count:             limits.N,
		Mean:              limits.Mean,
		StdDev:            limits.StdDev,
		Min:               lo,
		Max:               hi,
		UCL:               limits.UCL,
		LCL:               limits.LCL,
		Spec:              spec,
		PercentWithinSpec: PercentWithinSpec(records, spec),
	}

	if limits.N == 1 {
		sr.Issues = append(sr.Issues, "single observation: standard deviation treated as 0")
	}

	if spec == nil {
		sr.Issues = append(sr.Issues, "no spec limits: excluded from capability table")
	} else {
		capability := ComputeCapability(limits.Mean, limits.StdDev, *spec)
		stats.Capability = &capability
		sr.Issues = append(sr.Issues, specIssues(records, *spec)...)
		if !capability.Computable() {
			sr.Issues = append(sr.Issues, "capability not computable: "+capability.Cpk.Reason)
		}
	}

	sr.Statistics = stats
	sr.Anomalies = DetectAnomalies(step, records, limits, spec)
	sr.Distribution, _ = ComputeDistribution(values, 0)
	sr.Trend = SmoothTrend(records, shortWindow, longWindow)
	return sr
}

// specIssues reports inconsistencies in the spec limits a step carries.
func specIssues(records []Record, spec SpecLimits) []string {
	var issues []string
	if spec.Inverted() {
		issues = append(issues, fmt.Sprintf("lower spec %.4g is above upper spec %.4g", spec.Lower, spec.Upper))
	} else if spec.TargetOutside() {
		issues = append(issues, fmt.Sprintf("target %.4g outside spec range [%.4g, %.4g]", spec.Target, spec.Lower, spec.Upper))
	}
	for _, r := range records {
		if r.Spec != nil && *r.Spec != spec {
			issues = append(issues, "spec limits vary within step: earliest limits used for capability")
			break
		}
	}
	return issues
}

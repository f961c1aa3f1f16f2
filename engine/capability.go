package engine

import (
	"math"
)

// ============================================================================
// CAPABILITY — Cp, Cpk, Cpm and grade
// ============================================================================
// Cp  = (USL − LSL) / 6σ          spread vs tolerance width
// CPU = (USL − μ) / 3σ
// CPL = (μ − LSL) / 3σ
// Cpk = min(CPU, CPL)             spread + centering; Cp = (CPU+CPL)/2 ≥ Cpk
// Cpm = Cp / √(1 + ((μ − T)/σ)²)  Taguchi: penalises distance from target
//
// σ = 0 makes every index undefined. That is reported as NotComputable,
// never as 0, +Inf or NaN.
// ============================================================================

// Reasons attached to NotComputable capability values.
const (
	ReasonZeroVariance  = "zero variance"
	ReasonInvalidSpec   = "invalid spec limits"
	ReasonNonFinite     = "non-finite input"
	ReasonNoSpecLimits  = "no spec limits"
	ReasonNoRecords     = "no records"
	ReasonTooFewPairs   = "fewer than two shared timestamps"
	ReasonFlatOnOverlap = "zero variance on shared timestamps"
)

// Grade is the capability tier derived from Cpk.
type Grade string

const (
	GradeExcellent  Grade = "excellent"
	GradeGood       Grade = "good"
	GradeAdequate   Grade = "adequate"
	GradeMarginal   Grade = "marginal"
	GradeInadequate Grade = "inadequate"
)

// gradeTiers are checked top-down; each bound is inclusive and expressed in
// hundredths, the precision the tiers are quoted at.
var gradeTiers = []struct {
	minHundredths float64
	grade         Grade
}{
	{167, GradeExcellent},
	{133, GradeGood},
	{100, GradeAdequate},
	{67, GradeMarginal},
}

// ClassifyGrade maps a Cpk to its tier. Cpk is compared at two decimals,
// so 1.33 and 4/3 both grade "good" and 2/3 grades "marginal".
func ClassifyGrade(cpk float64) Grade {
	h := math.Round(cpk * 100)
	for _, tier := range gradeTiers {
		if h >= tier.minHundredths {
			return tier.grade
		}
	}
	return GradeInadequate
}

// Capability holds the indices for one step.
type Capability struct {
	Cp    Value `json:"cp"`
	CPU   Value `json:"cpu"`
	CPL   Value `json:"cpl"`
	Cpk   Value `json:"cpk"`
	Cpm   Value `json:"cpm"`
	Grade Grade `json:"grade,omitempty"` // empty when Cpk is not computable
}

// Computable reports whether the indices were derived.
func (c Capability) Computable() bool { return c.Cpk.Valid }

// ComputeCapability derives the indices from the process mean/σ and spec limits.
func ComputeCapability(mean, sigma float64, spec SpecLimits) Capability {
	switch {
	case !finite(mean, sigma, spec.Upper, spec.Lower, spec.Target):
		return notComputableCapability(ReasonNonFinite)
	case spec.Inverted():
		return notComputableCapability(ReasonInvalidSpec)
	case sigma <= 0:
		return notComputableCapability(ReasonZeroVariance)
	}

	cp := (spec.Upper - spec.Lower) / (6 * sigma)
	cpu := (spec.Upper - mean) / (3 * sigma)
	cpl := (mean - spec.Lower) / (3 * sigma)
	cpk := math.Min(cpu, cpl)
	offset := (mean - spec.Target) / sigma
	cpm := cp / math.Sqrt(1+offset*offset)

	c := Capability{
		Cp:  Computed(cp),
		CPU: Computed(cpu),
		CPL: Computed(cpl),
		Cpk: Computed(cpk),
		Cpm: Computed(cpm),
	}
	if c.Cpk.Valid {
		c.Grade = ClassifyGrade(cpk)
	}
	return c
}

func notComputableCapability(reason string) Capability {
	v := NotComputable(reason)
	return Capability{Cp: v, CPU: v, CPL: v, Cpk: v, Cpm: v}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

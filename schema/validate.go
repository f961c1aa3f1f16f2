package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/spektr-org/inspekt/engine"
)

// ============================================================================
// RECORD VALIDATION — Row-level checks applied by loaders
// ============================================================================
// Structural problems (no step, no timestamp, non-finite value) always
// reject the row. Spec problems (inverted limits, target outside the range)
// are reported and the row is kept, unless StrictSpec is set.
// ============================================================================

// ValidateOptions controls which problems reject a record.
type ValidateOptions struct {
	StrictSpec bool // reject rows with inverted limits or an out-of-range target
}

// RecordIssue is one problem found in one input row.
type RecordIssue struct {
	Row      int    `json:"row"` // 1-based data row (header excluded)
	Step     string `json:"step,omitempty"`
	Problem  string `json:"problem"`
	Rejected bool   `json:"rejected"`
}

func (i RecordIssue) String() string {
	action := "kept"
	if i.Rejected {
		action = "rejected"
	}
	if i.Step == "" {
		return fmt.Sprintf("row %d: %s (%s)", i.Row, i.Problem, action)
	}
	return fmt.Sprintf("row %d [%s]: %s (%s)", i.Row, i.Step, i.Problem, action)
}

// CheckRecord returns the problems in one record. Row numbers are the caller's.
func CheckRecord(row int, rec engine.Record, opts ValidateOptions) []RecordIssue {
	var issues []RecordIssue
	reject := func(problem string) {
		issues = append(issues, RecordIssue{Row: row, Step: rec.Step, Problem: problem, Rejected: true})
	}

	if strings.TrimSpace(rec.Step) == "" {
		reject("missing inspection step")
	}
	if rec.Timestamp.IsZero() {
		reject("missing timestamp")
	}
	if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
		reject("non-finite value")
	}

	if s := rec.Spec; s != nil {
		var problem string
		switch {
		case !isFinite(s.Target) || !isFinite(s.Upper) || !isFinite(s.Lower):
			problem = "non-finite spec limits"
		case s.Inverted():
			problem = fmt.Sprintf("lower spec %g is above upper spec %g", s.Lower, s.Upper)
		case s.TargetOutside():
			problem = fmt.Sprintf("target %g outside spec range [%g, %g]", s.Target, s.Lower, s.Upper)
		}
		if problem != "" {
			issues = append(issues, RecordIssue{Row: row, Step: rec.Step, Problem: problem, Rejected: opts.StrictSpec})
		}
	}
	return issues
}

// ValidateRecords checks every record and returns the kept ones with all issues.
func ValidateRecords(records []engine.Record, opts ValidateOptions) ([]engine.Record, []RecordIssue) {
	kept := make([]engine.Record, 0, len(records))
	var issues []RecordIssue
	for i, rec := range records {
		found := CheckRecord(i+1, rec, opts)
		issues = append(issues, found...)
		if !anyRejected(found) {
			kept = append(kept, rec)
		}
	}
	return kept, issues
}

func anyRejected(issues []RecordIssue) bool {
	for _, i := range issues {
		if i.Rejected {
			return true
		}
	}
	return false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ============================================================================
// FILTERS — Date range + step selection via the Record Store
// ============================================================================
// Single pass per selected step: each step's index list is already in
// chronological order, so the date bounds keep that order for free.
// Returns a Selection (index lists into the dataset) — zero data copy.
// ============================================================================

// ErrInvalidFilter is returned when a filter's bounds are inconsistent.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects records by calendar date (inclusive) and step.
// Zero From/To = unbounded on that side. Empty Steps = every step.
type Filter struct {
	From  time.Time `json:"from,omitempty"`
	To    time.Time `json:"to,omitempty"`
	Steps []string  `json:"steps,omitempty"`
}

// IsEmpty returns true if the filter imposes no restriction.
func (f Filter) IsEmpty() bool {
	return f.From.IsZero() && f.To.IsZero() && len(f.Steps) == 0
}

// Validate rejects a range whose start day is after its end day.
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && civilDay(f.From) > civilDay(f.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter,
			f.From.Format(time.DateOnly), f.To.Format(time.DateOnly))
	}
	return nil
}

// Key is a canonical string for the filter, used by ReportCache.
func (f Filter) Key() string {
	var b strings.Builder
	if !f.From.IsZero() {
		b.WriteString(f.From.Format(time.DateOnly))
	}
	b.WriteString("..")
	if !f.To.IsZero() {
		b.WriteString(f.To.Format(time.DateOnly))
	}
	b.WriteString("|")
	b.WriteString(strings.Join(uniqueSteps(f.Steps), "\x1f"))
	return b.String()
}

// Matches reports whether t falls inside the filter's date range.
func (f Filter) Matches(t time.Time) bool {
	day := civilDay(t)
	if !f.From.IsZero() && day < civilDay(f.From) {
		return false
	}
	if !f.To.IsZero() && day > civilDay(f.To) {
		return false
	}
	return true
}

// ============================================================================
// SELECTION — filtered subset of a Dataset
// ============================================================================

// Selection is the filtered view the calculators run over.
type Selection struct {
	dataset *Dataset
	filter  Filter
	steps   []string
	views   map[string]*StepView
}

// Select applies a filter to the dataset.
// Steps are ordered as listed in the filter, otherwise by first appearance.
// Selected steps absent from the dataset are kept with an empty view.
func (d *Dataset) Select(f Filter) (*Selection, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	steps := uniqueSteps(f.Steps)
	if len(steps) == 0 {
		steps = d.Steps()
	}

	sel := &Selection{
		dataset: d,
		filter:  f,
		steps:   steps,
		views:   make(map[string]*StepView, len(steps)),
	}

	for _, step := range steps {
		all := d.byStep[step]
		indices := make([]int, 0, len(all))
		for _, idx := range all {
			if f.Matches(d.records[idx].Timestamp) {
				indices = append(indices, idx)
			}
		}
		sel.views[step] = &StepView{step: step, parent: d, indices: indices}
	}
	return sel, nil
}

// Dataset returns the dataset this selection reads from.
func (s *Selection) Dataset() *Dataset { return s.dataset }

// Filter returns the filter that produced this selection.
func (s *Selection) Filter() Filter { return s.filter }

// Steps returns the selected step identifiers in report order.
func (s *Selection) Steps() []string {
	out := make([]string, len(s.steps))
	copy(out, s.steps)
	return out
}

// Step returns the filtered view of one step (empty if not selected).
func (s *Selection) Step(step string) *StepView {
	if v, ok := s.views[step]; ok {
		return v
	}
	return &StepView{step: step, parent: s.dataset}
}

// Len returns the number of selected records across all steps.
func (s *Selection) Len() int {
	n := 0
	for _, v := range s.views {
		n += v.Len()
	}
	return n
}

// Records returns every selected record in chronological order.
func (s *Selection) Records() []Record {
	var indices []int
	for _, step := range s.steps {
		indices = append(indices, s.views[step].indices...)
	}
	sort.Ints(indices)
	out := make([]Record, len(indices))
	for i, idx := range indices {
		out[i] = s.dataset.At(idx)
	}
	return out
}

// ============================================================================
// HELPERS
// ============================================================================

// civilDay maps a timestamp to yyyymmdd in its own location.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// uniqueSteps drops blanks and duplicates, keeping first occurrence.
func uniqueSteps(steps []string) []string {
	seen := make(map[string]bool, len(steps))
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

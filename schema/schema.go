package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// SCHEMA — Binds source columns to the six inspection record roles
// ============================================================================
// Auto-discovered from CSV headers (DiscoverFromCSV) or supplied by the
// consumer (config file, flags). Loaders in helpers/ resolve a Mapping
// against the actual header row before reading any data.
//
// Roles:
//   date        — measurement timestamp            (required)
//   step        — inspection step identifier       (required)
//   value       — measured value                   (required)
//   target      — nominal value                    (optional, with both specs)
//   upper_spec  — upper specification limit (USL)  (optional, with both specs)
//   lower_spec  — lower specification limit (LSL)  (optional, with both specs)
// ============================================================================

// Sentinel errors for mapping problems.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownColumn = errors.New("unknown column")
	ErrPartialSpec   = errors.New("spec columns must be mapped together")
)

// Role is what a source column contributes to a record.
type Role string

const (
	RoleDate      Role = "date"
	RoleStep      Role = "step"
	RoleValue     Role = "value"
	RoleTarget    Role = "target"
	RoleUpperSpec Role = "upper_spec"
	RoleLowerSpec Role = "lower_spec"
)

// Roles lists every role in canonical column order.
var Roles = []Role{RoleDate, RoleStep, RoleValue, RoleTarget, RoleUpperSpec, RoleLowerSpec}

// Mapping names the source column for each role.
// Blank spec columns mean the source carries no spec limits.
type Mapping struct {
	Date      string `json:"date" yaml:"date"`
	Step      string `json:"step" yaml:"step"`
	Value     string `json:"value" yaml:"value"`
	Target    string `json:"target,omitempty" yaml:"target"`
	UpperSpec string `json:"upperSpec,omitempty" yaml:"upper_spec"`
	LowerSpec string `json:"lowerSpec,omitempty" yaml:"lower_spec"`

	// DateFormat is a Go time layout. Empty = try the known layouts per value.
	DateFormat string `json:"dateFormat,omitempty" yaml:"-"`
}

// DefaultMapping returns the column names of the canonical inspection export.
func DefaultMapping() Mapping {
	return Mapping{
		Date:      "date",
		Step:      "inspection_step",
		Value:     "value",
		Target:    "target",
		UpperSpec: "upper_spec",
		LowerSpec: "lower_spec",
	}
}

// Column returns the source column mapped to a role.
func (m Mapping) Column(role Role) string {
	switch role {
	case RoleDate:
		return m.Date
	case RoleStep:
		return m.Step
	case RoleValue:
		return m.Value
	case RoleTarget:
		return m.Target
	case RoleUpperSpec:
		return m.UpperSpec
	case RoleLowerSpec:
		return m.LowerSpec
	}
	return ""
}

// set assigns a column to a role.
func (m *Mapping) set(role Role, column string) {
	switch role {
	case RoleDate:
		m.Date = column
	case RoleStep:
		m.Step = column
	case RoleValue:
		m.Value = column
	case RoleTarget:
		m.Target = column
	case RoleUpperSpec:
		m.UpperSpec = column
	case RoleLowerSpec:
		m.LowerSpec = column
	}
}

// Merge returns m with every non-blank column of override applied on top.
func (m Mapping) Merge(override Mapping) Mapping {
	for _, role := range Roles {
		if col := strings.TrimSpace(override.Column(role)); col != "" {
			m.set(role, col)
		}
	}
	if override.DateFormat != "" {
		m.DateFormat = override.DateFormat
	}
	return m
}

// HasSpec reports whether spec limits are mapped.
func (m Mapping) HasSpec() bool {
	return m.Target != "" && m.UpperSpec != "" && m.LowerSpec != ""
}

// Validate checks that required roles are mapped and spec roles come as a set.
func (m Mapping) Validate() error {
	for _, role := range []Role{RoleDate, RoleStep, RoleValue} {
		if strings.TrimSpace(m.Column(role)) == "" {
			return fmt.Errorf("%w: %s", ErrMissingColumn, role)
		}
	}
	specs := 0
	for _, role := range []Role{RoleTarget, RoleUpperSpec, RoleLowerSpec} {
		if strings.TrimSpace(m.Column(role)) != "" {
			specs++
		}
	}
	if specs != 0 && specs != 3 {
		return fmt.Errorf("%w: %d of 3 mapped", ErrPartialSpec, specs)
	}
	return nil
}

// ============================================================================
// COLUMN INDEX — Mapping resolved against a header row
// ============================================================================

// ColumnIndex holds header positions per role. -1 = not present.
type ColumnIndex struct {
	Date, Step, Value    int
	Target, Upper, Lower int
}

// HasSpec reports whether all three spec columns were found.
func (c ColumnIndex) HasSpec() bool {
	return c.Target >= 0 && c.Upper >= 0 && c.Lower >= 0
}

// Width is the minimum row length that covers every resolved column.
func (c ColumnIndex) Width() int {
	w := 0
	for _, i := range []int{c.Date, c.Step, c.Value, c.Target, c.Upper, c.Lower} {
		if i+1 > w {
			w = i + 1
		}
	}
	return w
}

// Resolve finds each mapped column in headers. Header matching ignores case,
// spacing and separators ("Upper Spec" matches "upper_spec").
func (m Mapping) Resolve(headers []string) (ColumnIndex, error) {
	if err := m.Validate(); err != nil {
		return ColumnIndex{}, err
	}

	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		key := toSnakeCase(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	find := func(role Role) (int, error) {
		col := m.Column(role)
		if col == "" {
			return -1, nil
		}
		if i, ok := positions[toSnakeCase(col)]; ok {
			return i, nil
		}
		return -1, fmt.Errorf("%w: %q for %s", ErrUnknownColumn, col, role)
	}

	idx := ColumnIndex{}
	var err error
	targets := []*int{&idx.Date, &idx.Step, &idx.Value, &idx.Target, &idx.Upper, &idx.Lower}
	for i, role := range Roles {
		if *targets[i], err = find(role); err != nil {
			return ColumnIndex{}, err
		}
	}
	return idx, nil
}

// ============================================================================
// DATES
// ============================================================================

// dateFormats are tried in order when no explicit layout is configured.
var dateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses s with layout, or with the first known layout that fits.
// Values without a zone are read as UTC.
func ParseDate(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if layout != "" {
		return time.ParseInLocation(layout, s, time.UTC)
	}
	for _, f := range dateFormats {
		if t, err := time.ParseInLocation(f, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

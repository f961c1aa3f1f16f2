package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic column mapping for inspection exports
// ============================================================================
// Inspects raw CSV and proposes a Mapping. No configuration needed for
// exports that use common header names.
//
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Header aliases → claim a role when the type fits the role
//   3. Unclaimed required roles → fall back to type + cardinality
//   4. Date column → detect a single layout that parses the samples
//   5. Everything left over → SkippedColumns with the reason
// ============================================================================

// ErrNoData is returned when the CSV has a header but no rows.
var ErrNoData = errors.New("no data rows")

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int     // Max rows to inspect (0 = all). Default: 1000
	Override   Mapping // Columns forced onto roles before heuristics run
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
	}
}

// Discovery is the outcome of inspecting a CSV.
type Discovery struct {
	Mapping        Mapping         `json:"mapping"`
	Columns        []ColumnInfo    `json:"columns"`
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty"`
	SampledRows    int             `json:"sampledRows"`
	DiscoveredFrom string          `json:"discoveredFrom"`
	DiscoveredAt   string          `json:"discoveredAt"`
}

// ColumnInfo describes one source column as seen during discovery.
type ColumnInfo struct {
	Header          string   `json:"header"`
	Key             string   `json:"key"`
	Type            string   `json:"type"` // "numeric", "date", "bool", "string"
	Role            Role     `json:"role,omitempty"`
	SampleValues    []string `json:"sampleValues"`
	UniqueCount     int      `json:"uniqueCount"`
	NullCount       int      `json:"nullCount"`
	CardinalityHint string   `json:"cardinalityHint"` // "low", "medium", "high"
}

// SkippedColumn records why a column was not mapped.
type SkippedColumn struct {
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// DiscoverFromCSV proposes a Mapping by inspecting CSV headers and values.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Discovery, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	// 1. Read headers
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("CSV has no columns")
	}

	// 2. Read sample rows
	var rows [][]string
	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}
	for i := 0; i < limit; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	// 3. Analyze each column
	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(header, i, rows)
	}

	// 4. Assign roles. A partial spec set is dropped rather than half-mapped.
	claimed := assignRoles(columns, opt.Override)
	specRoles := []Role{RoleTarget, RoleUpperSpec, RoleLowerSpec}
	specCount := 0
	for _, role := range specRoles {
		if _, ok := claimed[role]; ok {
			specCount++
		}
	}
	if specCount != len(specRoles) {
		for _, role := range specRoles {
			if i, ok := claimed[role]; ok {
				columns[i].partialSpec = true
				delete(claimed, role)
			}
		}
	}

	d := &Discovery{
		SampledRows:    len(rows),
		DiscoveredFrom: "CSV",
		DiscoveredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for role, i := range claimed {
		d.Mapping.set(role, columns[i].header)
		columns[i].role = role
	}

	// 5. Date layout
	if i, ok := claimed[RoleDate]; ok {
		d.Mapping.DateFormat = detectLayout(columns[i].values)
	}
	if opt.Override.DateFormat != "" {
		d.Mapping.DateFormat = opt.Override.DateFormat
	}

	for _, col := range columns {
		d.Columns = append(d.Columns, col.info())
		if col.role == "" {
			d.SkippedColumns = append(d.SkippedColumns, SkippedColumn{
				Column: col.header,
				Reason: col.skipReason(),
			})
		}
	}

	if err := d.Mapping.Validate(); err != nil {
		return d, fmt.Errorf("discover: %w", err)
	}
	return d, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

func (t columnType) String() string {
	switch t {
	case typeNumeric:
		return "numeric"
	case typeDate:
		return "date"
	case typeBool:
		return "bool"
	}
	return "string"
}

type columnAnalysis struct {
	header  string
	key     string
	index   int
	colType columnType
	role    Role

	// Stats
	values      []string
	uniqueCount int
	totalCount  int
	nullCount   int
	sampleVals  []string
	hasDecimals bool
	partialSpec bool
}

// analyzeColumn inspects all values in a column.
func analyzeColumn(header string, index int, rows [][]string) columnAnalysis {
	col := columnAnalysis{
		header:     strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")),
		key:        toSnakeCase(strings.TrimPrefix(header, "\ufeff")),
		index:      index,
		totalCount: len(rows),
	}

	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			col.nullCount++
			continue
		}
		col.values = append(col.values, val)
		uniqueSet[val] = true
	}
	col.uniqueCount = len(uniqueSet)
	if len(col.values) == 0 {
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 10)
	col.colType = detectType(col.values)
	if col.colType == typeNumeric {
		for _, v := range col.values {
			if strings.ContainsAny(v, ".eE") {
				col.hasDecimals = true
				break
			}
		}
	}
	return col
}

func (col *columnAnalysis) info() ColumnInfo {
	hint := "high"
	switch {
	case col.uniqueCount <= 10:
		hint = "low"
	case col.uniqueCount <= 100:
		hint = "medium"
	}
	return ColumnInfo{
		Header:          col.header,
		Key:             col.key,
		Type:            col.colType.String(),
		Role:            col.role,
		SampleValues:    col.sampleVals,
		UniqueCount:     col.uniqueCount,
		NullCount:       col.nullCount,
		CardinalityHint: hint,
	}
}

func (col *columnAnalysis) skipReason() string {
	switch {
	case len(col.values) == 0:
		return "All values are empty/null"
	case col.partialSpec:
		return "Spec limits need target, upper and lower columns"
	case col.colType == typeString && col.uniqueCount == col.totalCount && col.totalCount > 10:
		return "Unique per row — likely an identifier"
	case col.colType == typeBool:
		return "Boolean flag — no inspection role"
	}
	return "No matching inspection role"
}

// ============================================================================
// ROLE ASSIGNMENT
// ============================================================================

// roleAliases are normalized header names per role, most specific first.
var roleAliases = map[Role][]string{
	RoleDate:      {"date", "timestamp", "inspection_date", "measured_at", "inspected_at", "datetime", "time"},
	RoleStep:      {"inspection_step", "step", "process_step", "station", "operation", "stage"},
	RoleValue:     {"value", "measured_value", "measurement", "reading", "result"},
	RoleTarget:    {"target", "target_value", "nominal", "nominal_value"},
	RoleUpperSpec: {"upper_spec", "usl", "upper_spec_limit", "upper_limit", "upper"},
	RoleLowerSpec: {"lower_spec", "lsl", "lower_spec_limit", "lower_limit", "lower"},
}

// fits reports whether a column's type is acceptable for a role.
func (col *columnAnalysis) fits(role Role) bool {
	switch role {
	case RoleDate:
		return col.colType == typeDate
	case RoleStep:
		return len(col.values) > 0
	default:
		return col.colType == typeNumeric
	}
}

// assignRoles maps roles to column positions: overrides, then aliases,
// then type heuristics for the required roles.
func assignRoles(columns []columnAnalysis, override Mapping) map[Role]int {
	claimed := make(map[Role]int)
	taken := make(map[int]bool)

	claim := func(role Role, i int) {
		claimed[role] = i
		taken[i] = true
	}

	// Overrides win regardless of type.
	for _, role := range Roles {
		want := override.Column(role)
		if want == "" {
			continue
		}
		for i := range columns {
			if !taken[i] && columns[i].key == toSnakeCase(want) {
				claim(role, i)
				break
			}
		}
	}

	// Aliases, in alias priority order.
	for _, role := range Roles {
		if _, done := claimed[role]; done {
			continue
		}
	aliases:
		for _, alias := range roleAliases[role] {
			for i := range columns {
				if !taken[i] && columns[i].key == alias && columns[i].fits(role) {
					claim(role, i)
					break aliases
				}
			}
		}
	}

	// Heuristics for required roles only; spec columns must be named.
	if _, ok := claimed[RoleDate]; !ok {
		for i := range columns {
			if !taken[i] && columns[i].colType == typeDate {
				claim(RoleDate, i)
				break
			}
		}
	}
	if _, ok := claimed[RoleValue]; !ok {
		best := -1
		for i := range columns {
			if taken[i] || columns[i].colType != typeNumeric {
				continue
			}
			// Continuous data beats integer codes.
			if best < 0 || (columns[i].hasDecimals && !columns[best].hasDecimals) {
				best = i
			}
		}
		if best >= 0 {
			claim(RoleValue, best)
		}
	}
	if _, ok := claimed[RoleStep]; !ok {
		best := -1
		for i := range columns {
			c := &columns[i]
			if taken[i] || c.colType != typeString || c.uniqueCount == 0 {
				continue
			}
			if c.uniqueCount == c.totalCount && c.totalCount > 10 {
				continue // identifier
			}
			if best < 0 || c.uniqueCount < columns[best].uniqueCount {
				best = i
			}
		}
		if best >= 0 {
			claim(RoleStep, best)
		}
	}
	return claimed
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType inspects values to determine column type.
// Requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) columnType {
	if len(values) == 0 {
		return typeString
	}

	numCount := 0
	dateCount := 0
	boolCount := 0

	for _, v := range values {
		if isNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(math.Ceil(float64(len(values)) * 0.8))

	if boolCount >= threshold {
		return typeBool
	}
	if dateCount >= threshold {
		return typeDate
	}
	if numCount >= threshold {
		return typeNumeric
	}
	return typeString
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isDate(s string) bool {
	// Bare years and plain numbers are never dates here.
	if isNumeric(s) {
		return false
	}
	_, err := ParseDate(s, "")
	return err == nil
}

func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no"
}

func isNull(s string) bool {
	return s == "" || s == "null" || s == "NULL" || s == "N/A" || s == "n/a" || s == "NaN"
}

// detectLayout returns the first known layout that parses every value,
// or "" when the column mixes layouts (values are then parsed one by one).
func detectLayout(values []string) string {
	if len(values) == 0 {
		return ""
	}
	for _, layout := range dateFormats {
		ok := true
		for _, v := range values {
			if _, err := time.Parse(layout, v); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
	return ""
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	s = strings.TrimSpace(s)
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")
	return s
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}

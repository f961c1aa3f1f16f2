package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/inspekt/engine"
	"github.com/spektr-org/inspekt/schema"
)

// ============================================================================
// LOADERS — Source rows → []engine.Record
// ============================================================================
// Consumer reads the data from wherever it lives (file, database, upload).
// These helpers convert rows into Records using a schema.Mapping.
//
// Per row:
//   1. Resolve cells by role (text from CSV, typed values from SQL)
//   2. Parse date, step, value; spec limits only when all three are present
//   3. schema.CheckRecord → issues; rejected rows are dropped
// Bad rows never abort a load. They are reported in LoadResult.Issues.
// ============================================================================

// LoadOption configures a loader.
type LoadOption func(*loadConfig)

type loadConfig struct {
	logger   *zap.Logger
	validate schema.ValidateOptions
}

// WithLogger sets the structured logger. Default: no-op.
func WithLogger(logger *zap.Logger) LoadOption {
	return func(c *loadConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStrictSpec rejects rows with inverted limits or an out-of-range target.
func WithStrictSpec(strict bool) LoadOption {
	return func(c *loadConfig) {
		c.validate.StrictSpec = strict
	}
}

func applyLoadOptions(opts []LoadOption) *loadConfig {
	cfg := &loadConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadResult is what a loader produced.
type LoadResult struct {
	Records []engine.Record      `json:"-"`
	Issues  []schema.RecordIssue `json:"issues,omitempty"`
	Rows    int                  `json:"rows"` // data rows read
}

// Rejected returns how many rows were dropped.
func (r *LoadResult) Rejected() int {
	return r.Rows - len(r.Records)
}

// Dataset freezes the loaded records into an engine.Dataset.
func (r *LoadResult) Dataset() *engine.Dataset {
	return engine.NewDataset(r.Records)
}

// ============================================================================
// ROW CONVERSION
// ============================================================================

// rowLoader accumulates records from rows of cells.
type rowLoader struct {
	cfg    *loadConfig
	idx    schema.ColumnIndex
	layout string
	result *LoadResult
}

func newRowLoader(cfg *loadConfig, idx schema.ColumnIndex, layout string) *rowLoader {
	return &rowLoader{cfg: cfg, idx: idx, layout: layout, result: &LoadResult{}}
}

// reject records a row that could not be read at all.
func (l *rowLoader) reject(problem string) {
	l.result.Rows++
	issue := schema.RecordIssue{Row: l.result.Rows, Problem: problem, Rejected: true}
	l.result.Issues = append(l.result.Issues, issue)
	l.cfg.logger.Debug("row rejected", zap.Int("row", issue.Row), zap.String("problem", problem))
}

// add converts one row. cells holds string (CSV) or driver values (SQL).
func (l *rowLoader) add(cells []any) {
	l.result.Rows++
	row := l.result.Rows

	rec, issues := l.convert(row, cells)
	if !hasRejected(issues) {
		issues = append(issues, schema.CheckRecord(row, rec, l.cfg.validate)...)
	}

	for _, issue := range issues {
		l.cfg.logger.Debug("row issue",
			zap.Int("row", issue.Row),
			zap.String("step", issue.Step),
			zap.String("problem", issue.Problem),
			zap.Bool("rejected", issue.Rejected),
		)
	}
	l.result.Issues = append(l.result.Issues, issues...)
	if !hasRejected(issues) {
		l.result.Records = append(l.result.Records, rec)
	}
}

func hasRejected(issues []schema.RecordIssue) bool {
	for _, issue := range issues {
		if issue.Rejected {
			return true
		}
	}
	return false
}

func (l *rowLoader) convert(row int, cells []any) (engine.Record, []schema.RecordIssue) {
	var issues []schema.RecordIssue
	var rec engine.Record
	bad := func(problem string) {
		issues = append(issues, schema.RecordIssue{Row: row, Step: rec.Step, Problem: problem, Rejected: true})
	}

	rec.Step = strings.TrimSpace(cellText(cell(cells, l.idx.Step)))
	if rec.Step == "" {
		bad("missing inspection step")
	}

	ts, ok, err := cellTime(cell(cells, l.idx.Date), l.layout)
	switch {
	case err != nil:
		bad(err.Error())
	case !ok:
		bad("missing timestamp")
	default:
		rec.Timestamp = ts
	}

	v, ok, err := cellFloat(cell(cells, l.idx.Value))
	switch {
	case err != nil:
		bad("invalid value: " + err.Error())
	case !ok:
		bad("missing value")
	default:
		rec.Value = v
	}

	if l.idx.HasSpec() {
		spec, problem, reject := l.spec(cells)
		switch {
		case reject:
			bad(problem)
		case problem != "":
			issues = append(issues, schema.RecordIssue{Row: row, Step: rec.Step, Problem: problem})
		}
		rec.Spec = spec
	}
	return rec, issues
}

// spec reads the three spec cells. All blank = no spec; some blank = ignored.
func (l *rowLoader) spec(cells []any) (spec *engine.SpecLimits, problem string, reject bool) {
	parts := [3]float64{}
	present := 0
	for i, col := range []int{l.idx.Target, l.idx.Upper, l.idx.Lower} {
		v, ok, err := cellFloat(cell(cells, col))
		if err != nil {
			return nil, "invalid spec limit: " + err.Error(), true
		}
		if ok {
			parts[i] = v
			present++
		}
	}
	switch present {
	case 0:
		return nil, "", false
	case 3:
		return &engine.SpecLimits{Target: parts[0], Upper: parts[1], Lower: parts[2]}, "", false
	}
	return nil, "incomplete spec limits ignored", false
}

func (l *rowLoader) finish(source string) *LoadResult {
	l.cfg.logger.Info("records loaded",
		zap.String("source", source),
		zap.Int("rows", l.result.Rows),
		zap.Int("records", len(l.result.Records)),
		zap.Int("rejected", l.result.Rejected()),
	)
	return l.result
}

// ============================================================================
// CELL CONVERSION
// ============================================================================

func cell(cells []any, i int) any {
	if i < 0 || i >= len(cells) {
		return nil
	}
	return cells[i]
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// cellFloat parses a numeric cell. ok is false for blank/NULL cells.
func cellFloat(v any) (f float64, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case int64:
		return float64(x), true, nil
	}
	s := strings.TrimSpace(cellText(v))
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return 0, false, nil
	}
	f, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	return f, true, nil
}

// cellTime parses a date cell. Integers are Unix seconds.
func cellTime(v any, layout string) (t time.Time, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return x, true, nil
	case int64:
		return time.Unix(x, 0).UTC(), true, nil
	}
	s := strings.TrimSpace(cellText(v))
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err = schema.ParseDate(s, layout)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", s)
	}
	return t, true, nil
}

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/spektr-org/inspekt/engine"
)

// ============================================================================
// OUTPUT — json / pretty / text / csv rendering
// ============================================================================

// view is what a command renders. JSON formats marshal Payload; text and
// csv call their writers. A nil CSV falls back to JSON.
type view struct {
	Payload any
	Text    func(w io.Writer) error
	CSV     func(cw *csv.Writer) error
}

// render writes v in the selected format to stdout or --out.
func (a *app) render(v view) (err error) {
	w := a.stdout
	if a.flags.out != "" {
		f, cerr := os.Create(a.flags.out)
		if cerr != nil {
			return fmt.Errorf("failed to create output file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	color.NoColor = !isTerminal(w)

	switch a.flags.format {
	case "text":
		if v.Text != nil {
			return v.Text(w)
		}
	case "csv":
		if v.CSV != nil {
			cw := csv.NewWriter(w)
			if err := v.CSV(cw); err != nil {
				return err
			}
			cw.Flush()
			return cw.Error()
		}
	}
	return writeJSON(w, v.Payload, a.flags.format == "pretty")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// TEXT OUTPUT
// ============================================================================

var (
	titleColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	issueColor = color.New(color.FgYellow).SprintFunc()
	naColor    = color.New(color.FgHiBlack).SprintFunc()
)

var gradeColors = map[engine.Grade]func(a ...interface{}) string{
	engine.GradeExcellent:  color.New(color.FgGreen, color.Bold).SprintFunc(),
	engine.GradeGood:       color.New(color.FgGreen).SprintFunc(),
	engine.GradeAdequate:   color.New(color.FgYellow).SprintFunc(),
	engine.GradeMarginal:   color.New(color.FgRed).SprintFunc(),
	engine.GradeInadequate: color.New(color.FgRed, color.Bold).SprintFunc(),
}

func colorGrade(grade string) string {
	if fn, ok := gradeColors[engine.Grade(grade)]; ok {
		return fn(grade)
	}
	return naColor(grade)
}

// writeTable draws a TableData as a bordered text table.
func writeTable(w io.Writer, td *engine.TableData) error {
	if td == nil {
		return nil
	}
	headers := make([]string, len(td.Columns))
	gradeCol := -1
	for i, c := range td.Columns {
		headers[i] = c.Label
		if c.Key == "grade" {
			gradeCol = i
		}
	}

	rows := make([][]string, len(td.Rows))
	for i, row := range td.Rows {
		rows[i] = append([]string(nil), row...)
		if gradeCol >= 0 && gradeCol < len(row) {
			rows[i][gradeCol] = colorGrade(row[gradeCol])
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if col < len(td.Columns) && td.Columns[col].Align == "right" {
				style = style.Align(lipgloss.Right)
			}
			return style
		})

	if _, err := fmt.Fprintln(w, titleColor(td.Title)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	if td.Summary != nil {
		parts := make([]string, 0, len(td.Columns))
		for _, c := range td.Columns {
			if v, ok := td.Summary.Values[c.Key]; ok {
				parts = append(parts, c.Label+": "+v)
			}
		}
		line := td.Summary.Label
		if len(parts) > 0 {
			line += "  " + strings.Join(parts, "  ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary prints the report summary with issues highlighted.
func writeSummary(w io.Writer, r *engine.Report) error {
	for _, line := range strings.Split(engine.BuildSummary(r), "\n") {
		if strings.HasPrefix(line, "  ! ") {
			line = issueColor(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// CSV OUTPUT
// ============================================================================

func writeTableCSV(cw *csv.Writer, td *engine.TableData) error {
	headers := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		headers[i] = c.Label
	}
	if err := cw.Write(headers); err != nil {
		return err
	}
	return cw.WriteAll(td.Rows)
}

// writeChartCSV writes one row per label with one column per series.
func writeChartCSV(cw *csv.Writer, chart *engine.ChartConfig) error {
	if chart == nil || len(chart.Series) == 0 {
		return cw.Write([]string{"Result", "No data"})
	}

	xLabel := chart.XAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for i, d := range chart.Series[0].Data {
		row := []string{d.Label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → up to 4 decimals
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strconv.FormatFloat(engine.RoundTo(v, 4), 'f', -1, 64)
}

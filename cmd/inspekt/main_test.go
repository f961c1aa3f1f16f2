package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/inspekt/engine"
)

// ============================================================================
// CLI TESTS — drive the cobra tree end to end against temp files
// ============================================================================

var weldValues = []float64{44, 46, 47, 49, 50, 50, 51, 53, 54, 56}
var paintValues = []float64{18, 19, 20, 21, 22, 20, 19, 21, 20, 20}

func inspectionCSV(stepHeader string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "date,%s,value,target,upper_spec,lower_spec\n", stepHeader)
	for i := range weldValues {
		fmt.Fprintf(&b, "2024-03-%02d,weld,%g,50,70,30\n", i+1, weldValues[i])
		fmt.Fprintf(&b, "2024-03-%02d,paint,%g,20,30,10\n", i+1, paintValues[i])
	}
	return b.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "inspekt "+version+"\n", out)
}

func TestAnalyzeJSON(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "analyze", "--file", file, "--format", "json")
	require.NoError(t, err)

	var report engine.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 20, report.Overview.TotalInspections)
	assert.Equal(t, 2, report.Overview.StepCount)
	assert.Equal(t, "2024-03-01 to 2024-03-10", report.Overview.Period)
	require.NotNil(t, report.Correlation)
	assert.Equal(t, []string{"weld", "paint"}, report.Correlation.Steps)
}

func TestAnalyzeText(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "analyze", "--file", file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Inspections: 20 across 2 step(s)"), out)
	assert.Contains(t, out, "grade=excellent")
}

func TestCapabilityCSV(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "capability", "--file", file, "--format", "csv", "--steps", "weld")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Step,Cp,Cpk,Cpm,Mean,Std Dev,Grade", lines[0])
	assert.Equal(t, "weld,1.796,1.796,1.796,50.000,3.712,excellent", lines[1])
}

func TestCapabilityText(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "capability", "--file", file, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Process Capability")
	assert.Contains(t, out, "weld")
	assert.Contains(t, out, "excellent")
	assert.Contains(t, out, "2 graded")
}

func TestDistributionCSV(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "distribution", "--file", file, "--format", "csv", "--steps", "weld")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Step,Min,Q1,Median,Q3,Max,IQR,Outliers", lines[0])
	assert.Equal(t, "weld,44.000,46.500,50.000,52.000,56.000,5.500,0", lines[1])
}

func TestControlCSV(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "control", "--step", "weld", "--file", file, "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "Date,Measured", lines[0])
	assert.Equal(t, "2024-03-01T00:00:00,44", lines[1])
}

func TestControlUnknownStep(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	_, err := run(t, "control", "--step", "drill", "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step not present in dataset")
}

func TestTrendText(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	out, err := run(t, "trend", "--step", "paint", "--file", file, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "MA(7)")
	assert.Contains(t, out, "MA(30)")
	assert.Contains(t, out, "2024-03-10 00:00:00")
}

func TestCorrelationNeedsTwoSteps(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	_, err := run(t, "correlation", "--file", file, "--steps", "weld")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two steps")

	out, err := run(t, "correlation", "--file", file, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "weld,1.000,")
}

func TestStatsFromSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE inspections (
		date TEXT, inspection_step TEXT, value REAL, target REAL, upper_spec REAL, lower_spec REAL)`)
	require.NoError(t, err)
	for i, v := range weldValues {
		_, err = db.Exec(`INSERT INTO inspections VALUES (?, 'weld', ?, 50, 70, 30)`,
			fmt.Sprintf("2024-03-%02d", i+1), v)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	out, err := run(t, "stats", "--sqlite", path, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "weld,10,50.000,3.712,44.000,56.000,61.136,38.864,100.0%")
}

func TestConfigColumns(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("station"))
	cfg := writeFile(t, "inspekt.yaml", "columns:\n  step: station\ntrend:\n  short_window: 3\n  long_window: 5\n")

	out, err := run(t, "trend", "--step", "weld", "--file", file, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "MA(3)")
	assert.Contains(t, out, "MA(5)")

	_, err = run(t, "stats", "--file", file)
	require.Error(t, err, "default mapping has no station column")
}

func TestAutoMap(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("station"))

	out, err := run(t, "stats", "--file", file, "--auto-map", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "weld,10,")
}

func TestDiscover(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("station"))

	out, err := run(t, "discover", "--file", file, "--format", "json")
	require.NoError(t, err)

	var d struct {
		Mapping struct {
			Step  string `json:"step"`
			Value string `json:"value"`
		} `json:"mapping"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "station", d.Mapping.Step)
	assert.Equal(t, "value", d.Mapping.Value)
}

func TestMetricsFile(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))
	metrics := filepath.Join(t.TempDir(), "inspekt.prom")

	_, err := run(t, "stats", "--file", file, "--format", "json", "--metrics", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "inspekt_engine_analyses_total 1")
	assert.Contains(t, string(data), `inspekt_step_cpk{step="weld"}`)
}

func TestOutFile(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))
	dest := filepath.Join(t.TempDir(), "capability.csv")

	out, err := run(t, "capability", "--file", file, "--format", "csv", "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Step,Cp,Cpk"))
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspekt.yaml")

	out, err := run(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = run(t, "init-config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "init-config", path, "--force")
	require.NoError(t, err)
}

func TestErrors(t *testing.T) {
	file := writeFile(t, "inspections.csv", inspectionCSV("inspection_step"))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"stats"}, errNoSource.Error()},
		{"both sources", []string{"stats", "--file", file, "--sqlite", "x.db"}, "either --file or --sqlite"},
		{"unknown format", []string{"stats", "--file", file, "--format", "xml"}, "unknown format"},
		{"inverted range", []string{"stats", "--file", file, "--from", "2024-03-05", "--to", "2024-03-01"}, "invalid filter"},
		{"bad date", []string{"stats", "--file", file, "--from", "March"}, "--from"},
		{"missing file", []string{"stats", "--file", filepath.Join(t.TempDir(), "absent.csv")}, "failed to read file"},
		{"missing step flag", []string{"control", "--file", file}, "required flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

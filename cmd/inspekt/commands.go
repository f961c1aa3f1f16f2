package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/inspekt/config"
	"github.com/spektr-org/inspekt/engine"
	"github.com/spektr-org/inspekt/schema"
)

// ============================================================================
// SUBCOMMANDS
// ============================================================================

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Full SPC report: overview, per-step statistics, anomalies, trends, correlation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(view{
				Payload: report,
				Text:    func(w io.Writer) error { return writeSummary(w, report) },
				CSV: func(cw *csv.Writer) error {
					return writeTableCSV(cw, engine.BuildStatisticsTable(report))
				},
			})
		},
	}
}

func (a *app) capabilityCmd() *cobra.Command {
	return a.tableCmd("capability", "Cp, Cpk, Cpm and grade per step with spec limits", engine.BuildCapabilityTable)
}

func (a *app) statsCmd() *cobra.Command {
	return a.tableCmd("stats", "Descriptive statistics, control limits and spec compliance per step", engine.BuildStatisticsTable)
}

func (a *app) distributionCmd() *cobra.Command {
	return a.tableCmd("distribution", "Quartiles, IQR and outlier count per step", engine.BuildDistributionTable)
}

func (a *app) correlationCmd() *cobra.Command {
	return a.tableCmd("correlation", "Pearson correlation between steps on shared timestamps",
		func(r *engine.Report) *engine.TableData { return engine.BuildCorrelationTable(r.Correlation) })
}

// tableCmd is a command whose output is one table built from the report.
func (a *app) tableCmd(use, short string, build func(*engine.Report) *engine.TableData) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			if use == "correlation" && report.Correlation == nil {
				return errors.New("correlation needs at least two steps with data")
			}
			td := build(report)
			return a.render(view{
				Payload: td,
				Text:    func(w io.Writer) error { return writeTable(w, td) },
				CSV:     func(cw *csv.Writer) error { return writeTableCSV(cw, td) },
			})
		},
	}
}

// controlOutput is the JSON shape of the control command.
type controlOutput struct {
	Step      string              `json:"step"`
	Summary   string              `json:"summary"`
	Chart     *engine.ChartConfig `json:"chart"`
	Anomalies *engine.TableData   `json:"anomalies"`
	Issues    []string            `json:"issues,omitempty"`
}

func (a *app) controlCmd() *cobra.Command {
	var step string
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Control chart and out-of-control/out-of-spec points for one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sr, err := a.analyzeOne(cmd, step)
			if err != nil {
				return err
			}
			out := controlOutput{
				Step:      sr.Step,
				Summary:   engine.StepSummaryLine(sr),
				Chart:     engine.BuildControlChart(sr),
				Anomalies: engine.BuildAnomalyTable(sr.Anomalies),
				Issues:    sr.Issues,
			}
			return a.render(view{
				Payload: out,
				Text: func(w io.Writer) error {
					fmt.Fprintln(w, out.Summary)
					for _, issue := range out.Issues {
						fmt.Fprintln(w, issueColor("  ! "+issue))
					}
					return writeTable(w, out.Anomalies)
				},
				CSV: func(cw *csv.Writer) error { return writeChartCSV(cw, out.Chart) },
			})
		},
	}
	cmd.Flags().StringVar(&step, "step", "", "Inspection step to chart (required)")
	_ = cmd.MarkFlagRequired("step")
	return cmd
}

func (a *app) trendCmd() *cobra.Command {
	var step string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Raw values with short and long moving averages for one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sr, err := a.analyzeOne(cmd, step)
			if err != nil {
				return err
			}
			chart := engine.BuildTrendChart(sr)
			return a.render(view{
				Payload: chart,
				Text:    func(w io.Writer) error { return writeTable(w, trendTable(sr, a.cfg)) },
				CSV:     func(cw *csv.Writer) error { return writeChartCSV(cw, chart) },
			})
		},
	}
	cmd.Flags().StringVar(&step, "step", "", "Inspection step to smooth (required)")
	_ = cmd.MarkFlagRequired("step")
	return cmd
}

// analyzeOne restricts the filter to a single step and returns its report.
func (a *app) analyzeOne(cmd *cobra.Command, step string) (engine.StepReport, error) {
	a.flags.steps = []string{step}
	report, err := a.analyze(cmd.Context())
	if err != nil {
		return engine.StepReport{}, err
	}
	sr := report.Step(step)
	if sr == nil || sr.Statistics == nil {
		reason := "no data"
		if sr != nil && len(sr.Issues) > 0 {
			reason = sr.Issues[0]
		}
		return engine.StepReport{}, fmt.Errorf("step %q: %s", step, reason)
	}
	return *sr, nil
}

func trendTable(sr engine.StepReport, cfg *config.Config) *engine.TableData {
	td := &engine.TableData{
		Title: engine.LabelForStep(sr.Step) + " Trend",
		Columns: []engine.Column{
			{Key: "timestamp", Label: "Date", Type: "text", Align: "left"},
			{Key: "raw", Label: "Value", Type: "number", Align: "right"},
			{Key: "short", Label: fmt.Sprintf("MA(%d)", cfg.Trend.ShortWindow), Type: "number", Align: "right"},
			{Key: "long", Label: fmt.Sprintf("MA(%d)", cfg.Trend.LongWindow), Type: "number", Align: "right"},
		},
		Rows: make([][]string, 0, len(sr.Trend)),
	}
	for _, p := range sr.Trend {
		td.Rows = append(td.Rows, []string{
			p.Timestamp.Format("2006-01-02 15:04:05"),
			engine.FormatFloat(p.Raw, 3),
			engine.FormatFloat(p.Short, 3),
			engine.FormatFloat(p.Long, 3),
		})
	}
	return td
}

func (a *app) discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Propose a column mapping for a CSV export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.file == "" {
				return errors.New("discover needs --file")
			}
			data, err := os.ReadFile(a.flags.file)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			d, err := schema.DiscoverFromCSV(data)
			if d == nil {
				return err
			}
			if err != nil {
				a.logger.Warn("incomplete mapping", zap.Error(err))
			}
			td := discoveryTable(d)
			return a.render(view{
				Payload: d,
				Text: func(w io.Writer) error {
					if err := writeTable(w, td); err != nil {
						return err
					}
					for _, s := range d.SkippedColumns {
						fmt.Fprintf(w, "skipped %s: %s\n", s.Column, s.Reason)
					}
					return nil
				},
				CSV: func(cw *csv.Writer) error { return writeTableCSV(cw, td) },
			})
		},
	}
}

func discoveryTable(d *schema.Discovery) *engine.TableData {
	td := &engine.TableData{
		Title: "Column Mapping",
		Columns: []engine.Column{
			{Key: "header", Label: "Column", Type: "text", Align: "left"},
			{Key: "type", Label: "Type", Type: "text", Align: "left"},
			{Key: "role", Label: "Role", Type: "text", Align: "left"},
			{Key: "unique", Label: "Unique", Type: "number", Align: "right"},
			{Key: "nulls", Label: "Nulls", Type: "number", Align: "right"},
		},
		Rows: make([][]string, 0, len(d.Columns)),
	}
	for _, c := range d.Columns {
		role := string(c.Role)
		if role == "" {
			role = "-"
		}
		td.Rows = append(td.Rows, []string{
			c.Header, c.Type, role, strconv.Itoa(c.UniqueCount), strconv.Itoa(c.NullCount),
		})
	}
	return td
}

func (a *app) initConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default YAML config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "inspekt.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

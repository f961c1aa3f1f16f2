package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spektr-org/inspekt/config"
	"github.com/spektr-org/inspekt/engine"
	"github.com/spektr-org/inspekt/observability"
)

// ============================================================================
// INSPEKT CLI — Process capability for inspection exports
// ============================================================================
// Pipeline per command:
//   1. PersistentPreRunE: logger, config, metrics registry
//   2. Load records (--file CSV or --sqlite + --query)
//   3. engine.Analyze with the --from/--to/--steps filter
//   4. Render (json, pretty, text, csv) to stdout or --out
//   5. PersistentPostRunE: write --metrics, sync logger
// ============================================================================

const version = "0.3.0"

// flags holds the persistent flag values of one root command.
type flags struct {
	file        string
	sqlitePath  string
	query       string
	configPath  string
	from        string
	to          string
	steps       []string
	format      string
	out         string
	metricsPath string
	autoMap     bool
	verbose     bool
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	flags   flags
	stdout  io.Writer
	stderr  io.Writer
	logger  *zap.Logger
	cfg     *config.Config
	reg     *prometheus.Registry
	metrics *observability.Metrics
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "inspekt",
		Short: "Statistical process control for inspection data",
		Long: `inspekt computes control limits, process capability (Cp, Cpk, Cpm),
anomaly flags, distribution, rolling trends and cross-step correlation from
inspection measurements exported as CSV or stored in SQLite.

Examples:
  inspekt analyze --file inspections.csv --format text
  inspekt capability --file inspections.csv --from 2024-03-01 --to 2024-03-31
  inspekt control --step weld --file inspections.csv --format csv --out weld.csv
  inspekt correlation --sqlite plant.db --query "SELECT * FROM inspections"
  inspekt discover --file vendor_export.csv --format pretty`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = a.logger.Sync() }()
			return a.writeMetrics()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.file, "file", "f", "", "Path to an inspection CSV export")
	pf.StringVar(&a.flags.sqlitePath, "sqlite", "", "Path to a SQLite database holding inspection rows")
	pf.StringVar(&a.flags.query, "query", defaultQuery, "SQL query used with --sqlite")
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&a.flags.from, "from", "", "First calendar day to include (YYYY-MM-DD)")
	pf.StringVar(&a.flags.to, "to", "", "Last calendar day to include (YYYY-MM-DD)")
	pf.StringSliceVar(&a.flags.steps, "steps", nil, "Inspection steps to include (default: all)")
	pf.StringVar(&a.flags.format, "format", "text", "Output format: json, pretty, text, csv")
	pf.StringVarP(&a.flags.out, "out", "o", "", "Write output to file instead of stdout")
	pf.StringVar(&a.flags.metricsPath, "metrics", "", "Write Prometheus metrics to file after the run")
	pf.BoolVar(&a.flags.autoMap, "auto-map", false, "Discover the CSV column mapping instead of using config")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.analyzeCmd(),
		a.capabilityCmd(),
		a.statsCmd(),
		a.distributionCmd(),
		a.controlCmd(),
		a.trendCmd(),
		a.correlationCmd(),
		a.discoverCmd(),
		a.initConfigCmd(),
		versionCmd(),
	)
	return root
}

// setup builds the config, logger and metrics registry.
// Logs go to stderr as JSON so stdout carries only the rendered output.
func (a *app) setup() error {
	cfg := config.Default()
	if a.flags.configPath != "" {
		loaded, err := config.Load(a.flags.configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}
	a.cfg = cfg

	switch a.flags.format {
	case "json", "pretty", "text", "csv":
	default:
		return fmt.Errorf("unknown format %q (want json, pretty, text or csv)", a.flags.format)
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if a.flags.verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	a.logger = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(a.stderr), level))

	a.reg = prometheus.NewRegistry()
	a.metrics = observability.NewMetrics(a.reg)
	return nil
}

// filter converts --from/--to/--steps into an engine filter.
func (a *app) filter() (engine.Filter, error) {
	var f engine.Filter
	if a.flags.from != "" {
		t, err := time.Parse(time.DateOnly, a.flags.from)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.From = t
	}
	if a.flags.to != "" {
		t, err := time.Parse(time.DateOnly, a.flags.to)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		f.To = t
	}
	f.Steps = a.flags.steps
	return f, f.Validate()
}

// engineOptions are the config's engine options plus the metrics observer.
func (a *app) engineOptions() []engine.Option {
	return append(a.cfg.EngineOptions(a.logger), engine.WithObserver(a.metrics))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inspekt %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// writeMetrics dumps the registry in the Prometheus text format to --metrics.
func (a *app) writeMetrics() error {
	if a.flags.metricsPath == "" || a.reg == nil {
		return nil
	}
	families, err := a.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(a.flags.metricsPath)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	a.logger.Debug("metrics written", zap.String("path", a.flags.metricsPath), zap.Int("families", len(families)))
	return f.Close()
}

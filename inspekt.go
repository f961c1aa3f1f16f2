// Package inspekt provides statistical process control for inspection data.
// Capability analysis for any production line.
//
// Usage:
//
//	import "github.com/spektr-org/inspekt/engine"
//
//	ds := engine.NewDataset(records)
//	report, err := engine.Analyze(ds, engine.Filter{Steps: []string{"weld", "paint"}},
//	    engine.WithTrendWindows(7, 30),
//	    engine.WithLogger(logger),
//	)
//
// The engine takes an immutable Dataset of inspection records and a filter
// (date range + steps), and returns render-ready output: per-step control
// limits, Cp/Cpk/Cpm, anomaly flags, distribution, rolling trends and a
// cross-step correlation matrix.
//
// Loading is handled separately by the helpers package (CSV, database/sql),
// column mapping by schema, settings by config (YAML) and metrics by
// observability (Prometheus). The engine performs no I/O — all computation
// is local and deterministic. cmd/inspekt wraps everything in a CLI.
package inspekt

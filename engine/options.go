package engine

import (
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Analyze()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

// Observer receives analysis and cache events. observability.Metrics implements it.
type Observer interface {
	ObserveAnalysis(report *Report, elapsed time.Duration)
	ObserveCache(hit bool)
}

type config struct {
	Logger      *zap.Logger
	Observer    Observer
	ShortWindow int // rolling window for the short moving average
	LongWindow  int // rolling window for the long moving average
	Parallelism int // max concurrent per-step computations; 1 = sequential
}

// WithLogger sets the structured logger. Default: no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTrendWindows sets the short and long rolling windows.
// Non-positive values keep the defaults (7 and 30).
func WithTrendWindows(short, long int) Option {
	return func(c *config) {
		if short > 0 {
			c.ShortWindow = short
		}
		if long > 0 {
			c.LongWindow = long
		}
	}
}

// WithParallelism bounds how many steps are computed concurrently.
// Values below 1 mean sequential.
func WithParallelism(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.Parallelism = n
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.Observer = o
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:      zap.NewNop(),
		ShortWindow: DefaultShortWindow,
		LongWindow:  DefaultLongWindow,
		Parallelism: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

package engine

import (
	"sync"

	"go.uber.org/zap"
)

// ============================================================================
// REPORT CACHE — Caller-owned memo keyed by (dataset version, filter)
// ============================================================================
// The engine itself never caches. A presentation layer that re-renders on
// every interaction can hold one of these to skip identical recomputation.
// Presenting a dataset with a different version drops every entry, so a
// reload can never serve stale statistics.
// ============================================================================

// DefaultCacheEntries bounds a ReportCache created with a non-positive size.
const DefaultCacheEntries = 64

// ReportCache memoizes Analyze results. Safe for concurrent use.
// Cached reports are shared: treat them as read-only.
type ReportCache struct {
	mu      sync.Mutex
	max     int
	version string
	entries map[string]*Report
	order   []string // insertion order, oldest first
	opts    []Option
}

// NewReportCache creates a cache holding up to maxEntries reports.
// opts are passed to every Analyze call the cache makes.
func NewReportCache(maxEntries int, opts ...Option) *ReportCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &ReportCache{
		max:     maxEntries,
		entries: make(map[string]*Report),
		opts:    opts,
	}
}

// Get returns the cached report for (ds, filter), computing it on a miss.
func (c *ReportCache) Get(ds *Dataset, filter Filter) (*Report, error) {
	cfg := applyOptions(c.opts)
	key := filter.Key()

	c.mu.Lock()
	if c.version != ds.Version() {
		if c.version != "" {
			cfg.Logger.Debug("dataset reloaded, clearing report cache",
				zap.String("previous", c.version), zap.String("current", ds.Version()))
		}
		c.reset(ds.Version())
	}
	if r, ok := c.entries[key]; ok {
		c.mu.Unlock()
		cfg.Logger.Debug("report cache hit", zap.String("filter", key))
		if cfg.Observer != nil {
			cfg.Observer.ObserveCache(true)
		}
		return r, nil
	}
	c.mu.Unlock()

	if cfg.Observer != nil {
		cfg.Observer.ObserveCache(false)
	}
	report, err := Analyze(ds, filter, c.opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A reload may have raced this computation; only store reports for the live version.
	if c.version == ds.Version() {
		if _, exists := c.entries[key]; !exists {
			c.order = append(c.order, key)
		}
		c.entries[key] = report
		for len(c.order) > c.max {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
	}
	return report, nil
}

// Invalidate drops every cached report.
func (c *ReportCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset("")
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReportCache) reset(version string) {
	c.version = version
	c.entries = make(map[string]*Report)
	c.order = nil
}

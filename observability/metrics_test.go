package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/inspekt/engine"
)

func sampleDataset() *engine.Dataset {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	b := engine.NewDatasetBuilder()
	add := func(step string, spec *engine.SpecLimits, values ...float64) {
		for i, v := range values {
			b.Add(engine.Record{Timestamp: base.AddDate(0, 0, i), Step: step, Value: v, Spec: spec})
		}
	}
	add("weld", &engine.SpecLimits{Target: 50, Upper: 70, Lower: 30}, 44, 46, 47, 49, 50, 50, 51, 53, 54, 56)
	add("paint", &engine.SpecLimits{Target: 50, Upper: 60, Lower: 40}, 50, 50, 50, 50)
	add("bore", &engine.SpecLimits{Target: 10, Upper: 11, Lower: 9}, 10, 10.2, 9.8, 10.1, 12)
	add("cut", nil, 4, 8, 15, 16, 23, 42)
	return b.Build()
}

func TestObserveAnalysis(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	report, err := engine.Analyze(sampleDataset(), engine.Filter{}, engine.WithObserver(m))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.RecordsAnalyzed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AnalysisDurationSeconds))

	weld := report.Step("weld").Statistics.Capability.Cpk
	require.True(t, weld.Valid)
	assert.InDelta(t, weld.Float, testutil.ToFloat64(m.StepCpk.WithLabelValues("weld")), 1e-12)

	// paint has zero variance and cut has no spec: neither exports Cpk
	assert.Equal(t, 2, testutil.CollectAndCount(m.StepCpk))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepOutOfSpec.WithLabelValues("bore")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StepOutOfControl.WithLabelValues("bore")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.StepOutOfSpec))

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StepIssuesTotal.WithLabelValues("paint")), 1.0)
}

func TestObserveAnalysisDropsStaleCpk(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.StepCpk.WithLabelValues("paint").Set(1.5)

	m.ObserveAnalysis(&engine.Report{Steps: []engine.StepReport{{Step: "paint"}}}, time.Millisecond)

	assert.Equal(t, 0, testutil.CollectAndCount(m.StepCpk))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal))
}

func TestObserveCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	cache := engine.NewReportCache(4, engine.WithObserver(m))
	ds := sampleDataset()
	for i := 0; i < 3; i++ {
		_, err := cache.Get(ds, engine.Filter{})
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal))
}

func TestExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveCache(true)

	expected := `
# HELP inspekt_cache_requests_total Report cache lookups by result
# TYPE inspekt_cache_requests_total counter
inspekt_cache_requests_total{result="hit"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "inspekt_cache_requests_total"))
}

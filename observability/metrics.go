// Package observability exports inspection analysis as Prometheus metrics.
//
// Metrics implements engine.Observer. Attach it with engine.WithObserver
// (or the cache's option list) and every analysis updates the per-step
// gauges: last Cpk, out-of-control and out-of-spec counts.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spektr-org/inspekt/engine"
)

// ============================================================================
// METRIC DEFINITIONS
// ============================================================================

const (
	metricsNamespace = "inspekt"
	engineSubsystem  = "engine"
	stepSubsystem    = "step"
	cacheSubsystem   = "cache"
)

// Metrics holds the collectors fed by engine observations.
type Metrics struct {
	// AnalysesTotal counts completed Analyze calls.
	AnalysesTotal prometheus.Counter

	// AnalysisDurationSeconds measures Analyze wall time.
	AnalysisDurationSeconds prometheus.Histogram

	// RecordsAnalyzed is the record count of the last analysis.
	RecordsAnalyzed prometheus.Gauge

	// StepCpk is the last Cpk per step. Absent while Cpk is not computable.
	// Labels: step
	StepCpk *prometheus.GaugeVec

	// StepOutOfControl is the last out-of-control count per step.
	// Labels: step
	StepOutOfControl *prometheus.GaugeVec

	// StepOutOfSpec is the last out-of-spec count per step.
	// Labels: step
	StepOutOfSpec *prometheus.GaugeVec

	// StepIssuesTotal counts data-quality issues reported per step.
	// Labels: step
	StepIssuesTotal *prometheus.CounterVec

	// CacheRequestsTotal counts report cache lookups.
	// Labels: result (hit, miss)
	CacheRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "analyses_total",
			Help:      "Total number of completed analyses",
		}),
		AnalysisDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a full analysis",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		RecordsAnalyzed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "records_analyzed",
			Help:      "Records matched by the filter of the last analysis",
		}),
		StepCpk: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: stepSubsystem,
			Name:      "cpk",
			Help:      "Process capability index Cpk of the last analysis",
		}, []string{"step"}),
		StepOutOfControl: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: stepSubsystem,
			Name:      "out_of_control",
			Help:      "Records outside the control limits in the last analysis",
		}, []string{"step"}),
		StepOutOfSpec: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: stepSubsystem,
			Name:      "out_of_spec",
			Help:      "Records outside the spec limits in the last analysis",
		}, []string{"step"}),
		StepIssuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: stepSubsystem,
			Name:      "issues_total",
			Help:      "Data-quality issues reported per step",
		}, []string{"step"}),
		CacheRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: cacheSubsystem,
			Name:      "requests_total",
			Help:      "Report cache lookups by result",
		}, []string{"result"}),
	}
}

// ObserveAnalysis records one finished report.
func (m *Metrics) ObserveAnalysis(report *engine.Report, elapsed time.Duration) {
	m.AnalysesTotal.Inc()
	m.AnalysisDurationSeconds.Observe(elapsed.Seconds())
	if report == nil {
		return
	}
	m.RecordsAnalyzed.Set(float64(report.Overview.TotalInspections))

	for _, sr := range report.Steps {
		if n := len(sr.Issues); n > 0 {
			m.StepIssuesTotal.WithLabelValues(sr.Step).Add(float64(n))
		}

		if st := sr.Statistics; st != nil && st.Capability != nil && st.Capability.Cpk.Valid {
			m.StepCpk.WithLabelValues(sr.Step).Set(st.Capability.Cpk.Float)
		} else {
			m.StepCpk.DeleteLabelValues(sr.Step)
		}

		if a := sr.Anomalies; a != nil {
			m.StepOutOfControl.WithLabelValues(sr.Step).Set(float64(len(a.OutOfControl)))
			m.StepOutOfSpec.WithLabelValues(sr.Step).Set(float64(len(a.OutOfSpec)))
		} else {
			m.StepOutOfControl.DeleteLabelValues(sr.Step)
			m.StepOutOfSpec.DeleteLabelValues(sr.Step)
		}
	}
}

// ObserveCache records one cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

var _ engine.Observer = (*Metrics)(nil)

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradual_parse_seconds",
		Help:    "Time spent parsing and binding a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradual_analysis_seconds",
		Help:    "Time spent driving a module's analysis to its fixpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})

	AnalysisPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradual_analysis_passes_total",
		Help: "Total number of checker passes executed.",
	})

	AnalysisConvergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradual_analysis_converged_total",
		Help: "Total number of modules whose analysis reached a fixpoint.",
	})

	AnalysisAbortedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradual_analysis_aborted_total",
		Help: "Total number of modules whose analysis hit the pass ceiling.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradual_diagnostics_total",
		Help: "Total number of diagnostics emitted, labeled by severity.",
	}, []string{"severity"})

	ModulesAnalyzed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gradual_modules_analyzed_total",
		Help: "Number of modules in the last completed analysis run.",
	})

	WatchEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradual_watch_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

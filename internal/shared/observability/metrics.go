package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	TokenizeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scopeindex_extract_seconds",
		Help:    "Time spent tokenizing and extracting scopes from one file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"parser"})

	ScopesSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopeindex_scopes_saved_total",
		Help: "Total number of scopes written to the scope store.",
	}, []string{"parser"})

	UnindexableFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scopeindex_unindexable_files_total",
		Help: "Total number of files whose source could not be tokenized.",
	})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopeindex_store_errors_total",
		Help: "Total number of failed scope store operations.",
	}, []string{"op"})

	CompletionCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scopeindex_completion_cache_hits_total",
		Help: "Total number of completion queries answered from cache.",
	})

	IndexedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scopeindex_project_files",
		Help: "Number of filenames in the project index.",
	})

	IndexJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopeindex_index_jobs_total",
		Help: "Deferred index jobs by enqueue outcome.",
	}, []string{"result"})

	IndexQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scopeindex_index_queue_depth",
		Help: "Current number of deferred index jobs waiting.",
	})

	StaleResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopeindex_stale_results_total",
		Help: "Filter and search runs discarded because a newer query superseded them.",
	}, []string{"kind"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scopeindex_search_seconds",
		Help:    "Latency of a multi-file text search.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scopeindex_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

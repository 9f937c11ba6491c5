package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "libpack_compile_seconds",
		Help:    "Time spent compiling one source file into one format.",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	CompileFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libpack_compile_failures_total",
		Help: "Total number of failed compiles.",
	}, []string{"format"})

	InlinedSiblingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "libpack_inlined_siblings_total",
		Help: "Total number of sibling library modules found inlined into a compiled output.",
	})

	EligibleFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "libpack_eligible_files",
		Help: "Number of eligible source files found by the last discovery pass.",
	})

	ManifestWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "libpack_manifest_write_errors_total",
		Help: "Total number of manifest modules that could not be written.",
	})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "libpack_pipeline_seconds",
		Help:    "Time spent in a pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	WatcherEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libpack_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	}, []string{"kind"})

	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "libpack_task_queue_depth",
		Help: "Current number of dispatched tasks waiting for a worker.",
	})

	TasksFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "libpack_tasks_failed_total",
		Help: "Total number of dispatched tasks that returned an error.",
	})
)

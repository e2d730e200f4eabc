package compactor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var filesIngested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "compactor_files_ingested_total",
	Help: "Source files appended to the working table",
})

var filesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "compactor_files_skipped_total",
	Help: "Listed source files skipped because they were already ingested in the run",
})

var batchesFlushed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "compactor_batches_flushed_total",
	Help: "Working tables exported and dropped",
})

var runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "compactor_runs_total",
	Help: "Finished compaction runs by result",
}, []string{"result"})

var progressGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "compactor_progress",
	Help: "Files consumed by the current run",
})

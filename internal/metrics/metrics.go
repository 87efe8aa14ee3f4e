package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdata_tasks_submitted_total",
			Help: "Tasks submitted to the executor",
		},
		[]string{"task"},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdata_tasks_finished_total",
			Help: "Tasks that reached a terminal state",
		},
		[]string{"task", "status"},
	)

	TaskRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdata_task_retries_total",
			Help: "Task attempts that failed and were scheduled again",
		},
		[]string{"task"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evdata_task_attempt_duration_seconds",
			Help:    "Duration of single task attempts",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"task"},
	)

	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evdata_dataset_records",
			Help: "Records currently held in the derived-records cache",
		},
	)

	DatasetLoads = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evdata_dataset_load_seconds",
			Help:    "Time spent reading and decoding dataset files",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// ObserveDatasetLoad records one dataset read.
func ObserveDatasetLoad(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DatasetLoads.WithLabelValues(result).Observe(d.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

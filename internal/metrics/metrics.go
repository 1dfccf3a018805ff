package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_events_ingested_total",
		Help: "Total number of events accepted into a window log.",
	})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_events_rejected_total",
		Help: "Total number of events rejected by validation.",
	})

	EventsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_events_evicted_total",
		Help: "Total number of events dropped by FIFO eviction at the log cap.",
	})

	WindowsCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_windows_cleaned_total",
		Help: "Total number of stale window logs deleted by cleanup.",
	})

	CleanupRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_cleanup_runs_total",
		Help: "Total number of cleanup passes executed.",
	})

	LogUtilization = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "beacon_window_log_utilization_ratio",
		Help: "Current window log fill level (0-1), labelled by shard.",
	}, []string{"shard"})

	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beacon_aggregation_duration_ms",
		Help:    "Time spent recomputing window statistics in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	storageOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "beacon_storage_op_duration_ms",
		Help:    "Durable storage operation latency in milliseconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	}, []string{"op"})

	SinkDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_sink_deliveries_total",
		Help: "Events forwarded to the long-term sink, labelled by status.",
	}, []string{"status"})

	SinkQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_sink_queue_utilization_ratio",
		Help: "Current sink forwarding queue utilization (0-1).",
	})
)

// ObserveStorageOp records one storage operation's latency. Call with the
// start time via defer.
func ObserveStorageOp(op string, start time.Time) {
	storageOpDuration.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

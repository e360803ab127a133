package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Ledger writes
	RecordUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_updates_total",
			Help: "Per-record balance writes",
		},
		[]string{"ledger", "outcome"}, // ok|invalid|not_found|error
	)
	BulkOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_operations_total",
			Help: "Bulk delta and reset operations",
		},
		[]string{"ledger", "op", "outcome"}, // op: delta|reset, outcome: ok|unauthorized|invalid|error
	)
	BulkRecordsTouched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_records_touched_total",
			Help: "Records changed by bulk operations",
		},
		[]string{"ledger", "op"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(RequestLatency)
		prometheus.MustRegister(RecordUpdatesTotal)
		prometheus.MustRegister(BulkOperationsTotal)
		prometheus.MustRegister(BulkRecordsTouched)
		prometheus.MustRegister(WorkerQueueDepth)
	})
}

// Package monitoring provides metrics and observability for the job feed sync service
package monitoring

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item outcomes reported by the normalizer
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeSkipped   = "skipped"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

var (
	// Feed sync metrics
	feedSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_feed_syncs_total",
			Help: "Total number of per-feed sync attempts",
		},
		[]string{"feed_type", "status"},
	)

	feedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_fetch_duration_seconds",
			Help:    "Duration of feed downloads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed_type", "status"},
	)

	feedItemsParsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_feed_items_parsed",
			Help:    "Number of items parsed from a feed payload",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"feed_type"},
	)

	syncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_items_total",
			Help: "Feed items processed by outcome",
		},
		[]string{"outcome"},
	)

	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"mode", "status"},
	)

	syncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_run_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"mode"},
	)

	// Async processor metrics
	asyncJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_async_jobs_total",
			Help: "Total number of async sync jobs processed",
		},
		[]string{"status"},
	)

	asyncJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_async_job_duration_seconds",
			Help:    "Duration of async sync jobs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	asyncQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedsync_async_queue_size",
			Help: "Current size of async job queue",
		},
	)

	// Cache metrics
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"operation"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"operation"},
	)

	// Store metrics
	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_store_operations_total",
			Help: "Total number of job store operations",
		},
		[]string{"operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_store_operation_duration_seconds",
			Help:    "Duration of job store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedsync_active_workers",
			Help: "Number of active async workers",
		},
	)
)

// Running totals read by the alert rules
var (
	feedAttempts  atomic.Int64
	feedFailures  atomic.Int64
	storeAttempts atomic.Int64
	storeFailures atomic.Int64
	queueDepth    atomic.Int64
	queueCapacity atomic.Int64
)

// RecordFeedSync records the outcome of one feed within a run
func RecordFeedSync(feedType, status string) {
	feedSyncTotal.WithLabelValues(feedType, status).Inc()
	feedAttempts.Add(1)
	if status != "success" {
		feedFailures.Add(1)
	}
}

// RecordFeedFetch records a download and, when it succeeded, how many items it parsed into.
// Pass a negative itemsCount for failed fetches.
func RecordFeedFetch(feedType, status string, duration float64, itemsCount int) {
	feedFetchDuration.WithLabelValues(feedType, status).Observe(duration)
	if itemsCount >= 0 {
		feedItemsParsed.WithLabelValues(feedType).Observe(float64(itemsCount))
	}
}

// RecordItemOutcome counts one processed feed item
func RecordItemOutcome(outcome string) {
	syncItemsTotal.WithLabelValues(outcome).Inc()
}

// RecordSyncRun records a completed bulk or single run
func RecordSyncRun(mode, status string, duration float64) {
	syncRunsTotal.WithLabelValues(mode, status).Inc()
	syncRunDuration.WithLabelValues(mode).Observe(duration)
}

// RecordAsyncJob records metrics for async job processing
func RecordAsyncJob(status string, duration float64) {
	asyncJobsTotal.WithLabelValues(status).Inc()
	asyncJobDuration.WithLabelValues(status).Observe(duration)
}

// UpdateAsyncQueueSize updates the async queue size gauge
func UpdateAsyncQueueSize(size, capacity int) {
	asyncQueueSize.Set(float64(size))
	queueDepth.Store(int64(size))
	queueCapacity.Store(int64(capacity))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(operation string) {
	cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(operation string) {
	cacheMisses.WithLabelValues(operation).Inc()
}

// RecordStoreOperation records job store operation metrics
func RecordStoreOperation(operation, status string, duration float64) {
	storeOperations.WithLabelValues(operation, status).Inc()
	storeOperationDuration.WithLabelValues(operation, status).Observe(duration)
	storeAttempts.Add(1)
	if status != "success" {
		storeFailures.Add(1)
	}
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration)
}

// UpdateActiveWorkers updates the active workers gauge
func UpdateActiveWorkers(count int) {
	activeWorkers.Set(float64(count))
}

func ratio(numerator, denominator int64) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// GetFeedFailureRate returns the share of feed syncs that failed since start
func GetFeedFailureRate() float64 {
	return ratio(feedFailures.Load(), feedAttempts.Load())
}

// GetStoreErrorRate returns the share of job store operations that failed since start
func GetStoreErrorRate() float64 {
	return ratio(storeFailures.Load(), storeAttempts.Load())
}

// GetAsyncQueueUtilization returns queue depth over capacity
func GetAsyncQueueUtilization() float64 {
	return ratio(queueDepth.Load(), queueCapacity.Load())
}

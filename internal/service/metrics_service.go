package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	aggregatorDuration *prometheus.HistogramVec
	reportsTotal       *prometheus.CounterVec
	exportJobsTotal    *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reportsGenerated     uint64
	reportsFailed        uint64
	exportJobsQueued     uint64
	exportJobsFinished   uint64

	mu              sync.Mutex
	aggregatorRuns  map[string]uint64
	aggregatorNanos map[string]uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	aggregatorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_aggregator_duration_seconds",
		Help:    "Duration of a single aggregator run",
		Buckets: prometheus.DefBuckets,
	}, []string{"aggregator", "outcome"})

	reportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Reports assembled by type and outcome",
	}, []string{"type", "outcome"})

	exportJobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Export job state transitions",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		aggregatorDuration, reportsTotal, exportJobsTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		aggregatorDuration: aggregatorDuration,
		reportsTotal:       reportsTotal,
		exportJobsTotal:    exportJobsTotal,
		aggregatorRuns:     make(map[string]uint64),
		aggregatorNanos:    make(map[string]uint64),
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveAggregator records one aggregator run.
func (m *MetricsService) ObserveAggregator(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.aggregatorDuration.WithLabelValues(name, outcome(err)).Observe(duration.Seconds())
	m.mu.Lock()
	m.aggregatorRuns[name]++
	m.aggregatorNanos[name] += uint64(duration.Nanoseconds())
	m.mu.Unlock()
}

// RecordReport counts an assembled or failed report.
func (m *MetricsService) RecordReport(reportType models.ReportType, err error) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(string(reportType), outcome(err)).Inc()
	if err != nil {
		atomic.AddUint64(&m.reportsFailed, 1)
		return
	}
	atomic.AddUint64(&m.reportsGenerated, 1)
}

// RecordExportJob counts an export job reaching status.
func (m *MetricsService) RecordExportJob(status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobsTotal.WithLabelValues(string(status)).Inc()
	switch status {
	case models.ExportStatusQueued:
		atomic.AddUint64(&m.exportJobsQueued, 1)
	case models.ExportStatusFinished:
		atomic.AddUint64(&m.exportJobsFinished, 1)
	}
}

// Snapshot returns aggregated metrics suitable for analytics endpoints.
func (m *MetricsService) Snapshot() models.SystemSnapshot {
	if m == nil {
		return models.SystemSnapshot{AggregatorRuns: map[string]uint64{}, AggregatorAvgMs: map[string]float64{}}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	m.mu.Lock()
	runs := make(map[string]uint64, len(m.aggregatorRuns))
	avg := make(map[string]float64, len(m.aggregatorRuns))
	for name, count := range m.aggregatorRuns {
		runs[name] = count
		if count > 0 {
			avg[name] = float64(m.aggregatorNanos[name]) / float64(count) / float64(time.Millisecond)
		}
	}
	m.mu.Unlock()

	return models.SystemSnapshot{
		ReportsGenerated:   atomic.LoadUint64(&m.reportsGenerated),
		ReportsFailed:      atomic.LoadUint64(&m.reportsFailed),
		CacheHits:          hits,
		CacheMisses:        misses,
		CacheHitRatio:      cacheRatio,
		AggregatorRuns:     runs,
		AggregatorAvgMs:    avg,
		AverageLatencyMs:   avgRequestMs,
		RequestsTotal:      requests,
		ExportJobsQueued:   atomic.LoadUint64(&m.exportJobsQueued),
		ExportJobsFinished: atomic.LoadUint64(&m.exportJobsFinished),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

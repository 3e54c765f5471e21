package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the finance API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	paymentsRecorded  *prometheus.CounterVec
	paymentAmount     prometheus.Counter
	payrollPending    prometheus.Gauge
	payrollPaid       prometheus.Gauge
	bulkItems         *prometheus.CounterVec
	statementJobs     *prometheus.CounterVec
	statementDuration prometheus.Observer
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_payments_total",
		Help: "Fee payments recorded, labelled by method",
	}, []string{"method"})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_payments_amount_total",
		Help: "Total amount collected across fee payments",
	})

	payrollPending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payroll_pending_amount",
		Help: "Sum of active salaries still pending this cycle",
	})

	payrollPaid := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payroll_paid_amount",
		Help: "Sum of active salaries paid this cycle",
	})

	bulkItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_items_total",
		Help: "Bulk operation items by operation and result",
	}, []string{"operation", "result"})

	statementJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statement_jobs_total",
		Help: "Statement export jobs by terminal status",
	}, []string{"status"})

	statementDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "statement_job_duration_seconds",
		Help:    "Wall time of statement export jobs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		paymentsRecorded, paymentAmount, payrollPending, payrollPaid,
		bulkItems, statementJobs, statementDuration, goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		paymentsRecorded:  paymentsRecorded,
		paymentAmount:     paymentAmount,
		payrollPending:    payrollPending,
		payrollPaid:       payrollPaid,
		bulkItems:         bulkItems,
		statementJobs:     statementJobs,
		statementDuration: statementDuration,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPayment counts one recorded fee payment.
func (m *MetricsService) RecordPayment(method string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(method).Inc()
	m.paymentAmount.Add(amount)
}

// SetPayrollAmounts republishes the ledger aggregates after a transition.
func (m *MetricsService) SetPayrollAmounts(pending, paid float64) {
	if m == nil {
		return
	}
	m.payrollPending.Set(pending)
	m.payrollPaid.Set(paid)
}

// RecordBulkItems counts bulk run results for one operation.
func (m *MetricsService) RecordBulkItems(operation string, succeeded, skipped, failed int) {
	if m == nil {
		return
	}
	m.bulkItems.WithLabelValues(operation, "succeeded").Add(float64(succeeded))
	m.bulkItems.WithLabelValues(operation, "skipped").Add(float64(skipped))
	m.bulkItems.WithLabelValues(operation, "failed").Add(float64(failed))
}

// RecordStatementJob counts one finished export and its wall time.
func (m *MetricsService) RecordStatementJob(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.statementJobs.WithLabelValues(status).Inc()
	if m.statementDuration != nil {
		m.statementDuration.Observe(duration.Seconds())
	}
}

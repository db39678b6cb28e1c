package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	ReconciledRows  *prometheus.CounterVec
	ReconcileErrors *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	PageCache       *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			ReconciledRows: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciled_rows_total",
				Help:      "Child rows written by reconciliation, by collection and operation.",
			}, []string{"collection", "op"}),
			ReconcileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_errors_total",
				Help:      "Failed child collection reconciliations.",
			}, []string{"collection"}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status.",
			}, []string{"route", "method", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			PageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_cache_lookups_total",
				Help:      "Public page cache lookups by result.",
			}, []string{"result"}),
			Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Image uploads by bucket and outcome.",
			}, []string{"bucket", "status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.ReconciledRows,
			metricsInstance.ReconcileErrors,
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.PageCache,
			metricsInstance.Uploads,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}

// ObservePlan records the rows a reconciliation touched. Safe on a nil receiver.
func (m *Metrics) ObservePlan(collection string, deleted, inserted, updated int) {
	if m == nil {
		return
	}
	m.ReconciledRows.WithLabelValues(collection, "delete").Add(float64(deleted))
	m.ReconciledRows.WithLabelValues(collection, "insert").Add(float64(inserted))
	m.ReconciledRows.WithLabelValues(collection, "update").Add(float64(updated))
}

// ReconcileFailed counts a failed reconciliation. Safe on a nil receiver.
func (m *Metrics) ReconcileFailed(collection string) {
	if m == nil {
		return
	}
	m.ReconcileErrors.WithLabelValues(collection).Inc()
}

// HTTPRequest records a served request. Safe on a nil receiver.
func (m *Metrics) HTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// CacheLookup counts a public page cache lookup. Safe on a nil receiver.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.PageCache.WithLabelValues(result).Inc()
}

// Upload counts an upload attempt. Safe on a nil receiver.
func (m *Metrics) Upload(bucket, status string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(bucket, status).Inc()
}

// Error counts an error for component. Safe on a nil receiver.
func (m *Metrics) Error(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}

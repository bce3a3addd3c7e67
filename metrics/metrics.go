// Package metrics provides Prometheus metrics for datarepo operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datarepo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datarepo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Backend operation metrics
	BackendOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datarepo_backend_ops_total",
			Help: "Total number of backend operations",
		},
		[]string{"backend_type", "operation", "status"}, // status: "success", "failure"
	)

	BackendOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datarepo_backend_op_duration_seconds",
			Help:    "Backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend_type", "operation"},
	)

	BackendBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datarepo_backend_bytes_total",
			Help: "Total bytes transferred to or from the remote store",
		},
		[]string{"backend_type", "direction"}, // direction: "upload", "download"
	)

	// Sync metrics
	SyncActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datarepo_sync_actions_total",
			Help: "Files uploaded, deleted or skipped by push and single-file runs",
		},
		[]string{"algorithm", "action"}, // algorithm: "push", "single"; action: "upload", "delete", "skip"
	)

	// Lock manager metrics
	LockOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datarepo_lock_operations_total",
			Help: "Total number of lock operations",
		},
		[]string{"operation", "status"}, // operation: "acquire", "release"; status: "success", "failure", "held"
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datarepo_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
)

// ObserveBackendOp records the outcome and latency of one backend call.
func ObserveBackendOp(backendType, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	BackendOpsTotal.WithLabelValues(backendType, operation, status).Inc()
	BackendOpDuration.WithLabelValues(backendType, operation).Observe(time.Since(start).Seconds())
}

// RecordTransfer adds n bytes to the transfer counter for the given direction.
func RecordTransfer(backendType, direction string, n int64) {
	if n <= 0 {
		return
	}
	BackendBytesTotal.WithLabelValues(backendType, direction).Add(float64(n))
}

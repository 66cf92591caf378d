package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Transfer metrics
	TransfersCreated prometheus.Counter
	TransferErrors   *prometheus.CounterVec
	TransferDuration prometheus.Histogram

	// Execution metrics
	ExecutionsStarted  prometheus.Counter
	ExecutionsFinished *prometheus.CounterVec
	NodeEvaluations    *prometheus.CounterVec
	NodeRetries        prometheus.Counter

	// Audit metrics
	AuditEntriesCreated *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransfersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veilflow_transfers_created_total",
			Help: "Total number of committed transfer pairs",
		}),
		TransferErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veilflow_transfer_errors_total",
			Help: "Total number of failed transfer attempts by reason",
		}, []string{"reason"}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veilflow_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		ExecutionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veilflow_executions_started_total",
			Help: "Total number of workflow executions enqueued",
		}),
		ExecutionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veilflow_executions_finished_total",
			Help: "Total number of workflow executions by terminal status",
		}, []string{"status"}),
		NodeEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veilflow_node_evaluations_total",
			Help: "Total number of node evaluations by kind and outcome",
		}, []string{"kind", "status"}),
		NodeRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veilflow_node_retries_total",
			Help: "Total number of node retry attempts",
		}),
		AuditEntriesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veilflow_audit_entries_total",
			Help: "Total number of audit entries by action",
		}, []string{"action"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veilflow_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veilflow_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Package metrics defines Prometheus metrics for tenantguard.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantguard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	IsolationBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_isolation_blocks_total",
			Help: "Cross-tenant operations blocked by the isolation enforcer",
		},
		[]string{"resource_type", "operation"},
	)

	ProvisioningJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_provisioning_jobs_total",
			Help: "Provisioning job state transitions",
		},
		[]string{"status"},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantguard_audit_queue_depth",
			Help: "Current audit write-behind queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantguard_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		IsolationBlocksTotal, ProvisioningJobsTotal,
		AuditQueueDepth, WSConnections,
	)
}

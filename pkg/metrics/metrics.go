package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudconnect_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudconnect_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// BlobUploads counts blob store writes by backend and outcome (success|failure).
	BlobUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudconnect_blob_uploads_total",
			Help: "Total number of blob store uploads",
		},
		[]string{"backend", "result"},
	)

	// UploadedBytes accumulates the payload size of successful blob uploads.
	UploadedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudconnect_uploaded_bytes_total",
			Help: "Total bytes written to the blob store",
		},
		[]string{"backend"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudconnect_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

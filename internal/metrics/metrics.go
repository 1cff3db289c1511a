// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "registry", Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "registry", Name: "http_request_duration_seconds", Help: "HTTP request latency by method and route.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "registry", Name: "rate_limit_allowed_total", Help: "Requests let through by the rate limiter."},
		[]string{"route"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "registry", Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
		[]string{"route"},
	)
	UploadsStored = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "registry", Name: "uploads_stored_total", Help: "Files accepted by the upload handler."},
	)
	UploadsOrphaned = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "registry", Name: "uploads_orphaned_total", Help: "Stored files whose record insert failed and that could not be removed."},
	)
)

// RegisterCollectors registers every collector on reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests, HTTPDuration, RateLimitAllowed, RateLimitRejected, UploadsStored, UploadsOrphaned)
}

// Package metrics provides Prometheus instrumentation for the application.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	complaintsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Total number of complaints accepted at intake",
		},
		[]string{"type"},
	)

	complaintsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaints_rejected_total",
			Help: "Total number of submissions rejected at intake",
		},
		[]string{"reason"},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaint_status_transitions_total",
			Help: "Total number of accepted status transitions",
		},
		[]string{"from", "to"},
	)

	routingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_attempts_total",
			Help: "Total number of work-order creation attempts",
		},
		[]string{"outcome"},
	)

	routingExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "routing_exhausted_total",
			Help: "Total number of complaints escalated to manual routing after retry exhaustion",
		},
	)

	outboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_outbox_deliveries_total",
			Help: "Total number of outbox delivery attempts",
		},
		[]string{"kind", "outcome"},
	)
)

// ComplaintSubmitted records an accepted submission.
func ComplaintSubmitted(complaintType string) {
	complaintsSubmitted.WithLabelValues(complaintType).Inc()
}

// ComplaintRejected records an intake rejection (e.g. OutOfBoundary).
func ComplaintRejected(reason string) {
	complaintsRejected.WithLabelValues(reason).Inc()
}

// StatusTransition records an accepted lifecycle transition.
func StatusTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

// RoutingAttempt records a work-order creation attempt outcome.
func RoutingAttempt(outcome string) {
	routingAttempts.WithLabelValues(outcome).Inc()
}

// RoutingExhausted records a retry-exhaustion escalation.
func RoutingExhausted() {
	routingExhausted.Inc()
}

// OutboxDelivery records a notification delivery attempt.
func OutboxDelivery(kind, outcome string) {
	outboxDeliveries.WithLabelValues(kind, outcome).Inc()
}

// Middleware instruments HTTP requests.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

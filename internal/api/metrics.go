package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lvRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	lvRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lv_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	lvTrustEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_trust_events_total",
		Help: "Total trust events recorded, by event type.",
	}, []string{"type"})

	lvPenaltiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_penalties_total",
		Help: "Total penalty applications by outcome (applied, capped, rejected).",
	}, []string{"outcome"})

	lvDepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_deposits_total",
		Help: "Total escrow deposits created, by payment channel.",
	}, []string{"channel"})

	lvReleasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lv_releases_total",
		Help: "Total escrow releases by resulting status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		lvRequestsTotal.WithLabelValues(method, path, status).Inc()
		lvRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func recordTrustEvent(eventType string) {
	lvTrustEventsTotal.WithLabelValues(eventType).Inc()
}

func recordPenalty(outcome string) {
	lvPenaltiesTotal.WithLabelValues(outcome).Inc()
}

func recordDeposit(channel string) {
	lvDepositsTotal.WithLabelValues(channel).Inc()
}

func recordRelease(status string) {
	lvReleasesTotal.WithLabelValues(status).Inc()
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP metrics keep label cardinality bounded by using the registered route
// (c.FullPath) rather than the raw URL.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// acceptanceAttempts tracks how request acceptances resolve. The
	// "conflict" outcome counts losers of the open->assigned race, a number
	// worth watching: a high ratio means writers are fighting over a thin
	// listing.
	acceptanceAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_acceptance_attempts_total",
			Help: "Assignment request acceptance attempts by outcome.",
		},
		[]string{"outcome"},
	)

)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, acceptanceAttempts)
}

// ObserveAcceptance records one acceptance attempt. Outcome is one of
// "accepted", "conflict", "rejected", or "error".
func ObserveAcceptance(outcome string) {
	acceptanceAttempts.WithLabelValues(outcome).Inc()
}

// Metrics instruments every request with the Prometheus collectors above.
// Mount promhttp.Handler on /metrics to expose them.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenantguardhq/tenantguard/internal/metrics"
)

// PrometheusMiddleware observes per-request latency and counts, labelled by
// the route pattern (not the raw path, which would explode cardinality on
// job IDs).
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		elapsed := time.Since(start).Seconds()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(elapsed)
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}

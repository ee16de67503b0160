package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route, so probing random
// paths cannot grow label cardinality.
const unmatchedRoute = "unmatched"

// Metrics records latency and count per route template, never per raw path:
// /api/admin/users/:id stays one series however many ids are deleted.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		labels := []string{c.Request.Method, route, strconv.Itoa(c.Writer.Status())}

		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/communitycontent/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latencies. Paths are labelled with
// the matched route so unknown URLs cannot explode label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

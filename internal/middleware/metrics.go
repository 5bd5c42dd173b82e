package middleware

import (
	"time"

	"user_admin_backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics observes request duration by method, matched route and status.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

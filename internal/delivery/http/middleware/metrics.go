package middleware

import (
	"time"

	"go-recruitment-intake/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per route template, so
// /chat/sessions/:id is one series regardless of the session id.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

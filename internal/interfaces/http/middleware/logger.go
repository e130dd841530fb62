package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"seqrview.backend/internal/infrastructure/metrics"
	"seqrview.backend/pkg/logger"
)

// LoggerMiddleware logs HTTP requests using the structured logger and
// records their duration by matched route. m may be nil.
func LoggerMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		// RequestIDMiddleware and AuthMiddleware put request and user ids on the request context
		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), latency, c.ClientIP())
		m.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), latency)
	}
}

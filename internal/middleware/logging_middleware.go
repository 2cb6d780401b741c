// internal/middleware/logging_middleware.go
package middleware

import (
	"minitel-service/internal/utils"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs every request with its latency and the request
// ID set by RequestIDMiddleware, which must run first.
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		logger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.GetString("request_id"),
			c.ClientIP(),
			c.Writer.Status(),
			duration,
		)
	}
}

package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader     = "X-Request-ID"
	requestIDContextKey = "requestID"
)

// RequestLogger tags each request with an ID and logs method, path, status
// and duration once the handler chain returns.
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()[:8]
		}
		c.Header(RequestIDHeader, id)
		c.Set(requestIDContextKey, id)

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"requestID", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if userID := UserID(c); userID != "" {
			fields = append(fields, "userID", userID)
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

// RequestID returns the id assigned by RequestLogger, or "" outside it.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/utils"
)

const (
	CorrelationIdHeader  = "x-correlation-id"
	IdempotencyKeyHeader = "Idempotency-Key"
)

// CorrelationIdMiddleware takes the caller's correlation id or generates one, and echoes it back.
func CorrelationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(CorrelationIdHeader))
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(CorrelationIdHeader, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// IdempotencyKeyMiddleware copies the Idempotency-Key header onto the request context.
func IdempotencyKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)); key != "" {
			c.Request = c.Request.WithContext(utils.SetIdempotencyKeyInContext(c.Request.Context(), key))
		}
		c.Next()
	}
}

// ReadinessMiddleware answers /healthz itself and returns 503 for everything else until ready reports true.
func ReadinessMiddleware(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		// always allow the startup check
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if !ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "service is starting",
				"code":  "storage_fault",
			})
			return
		}
		c.Next()
	}
}

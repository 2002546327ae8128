package middleware

import (
	"dynosched/pkg/logger"
	"dynosched/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request ID in both directions
const HeaderRequestID = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or generates one, and exposes
// it to handlers through the gin and request contexts.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(response.RequestIDKey, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

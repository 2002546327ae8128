package middleware

import (
	"time"

	"dynosched/pkg/logger"
	"dynosched/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// quietPaths are polled by health checkers and only logged on failure
var quietPaths = map[string]bool{
	"/health":      true,
	"/ping":        true,
	"/favicon.ico": true,
}

// GinZapLogger logs one line per request through the global zap logger
func GinZapLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		statusCode := c.Writer.Status()
		if quietPaths[path] && statusCode < 400 {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(response.RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_size", c.Writer.Size()),
		}
		if c.Request.URL.RawQuery != "" {
			fields = append(fields, zap.String("query", c.Request.URL.RawQuery))
		}
		if gin.Mode() == gin.DebugMode {
			fields = append(fields, zap.String("user_agent", c.Request.UserAgent()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			logger.Error("Internal server error", fields...)
		case statusCode >= 400:
			logger.Warn("Client request error", fields...)
		default:
			logger.Debug("HTTP request completed", fields...)
		}
	}
}

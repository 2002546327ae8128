package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Error response field names
const (
	FieldError     = "error"
	FieldMessage   = "message"
	FieldCode      = "code"
	FieldDetails   = "details"
	FieldRequestID = "request_id"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "RequestID"

// JSON writes data with the given status code
func JSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Success wraps data in the standard success envelope
func Success(c *gin.Context, statusCode int, data interface{}) {
	body := gin.H{
		"success":   true,
		"timestamp": time.Now().UTC(),
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(statusCode, body)
}

// Error writes an error response and aborts the handler chain
func Error(c *gin.Context, statusCode int, message string, err error) {
	body := gin.H{
		FieldError:   true,
		FieldMessage: message,
		FieldCode:    statusCode,
	}
	if err != nil {
		body[FieldDetails] = err.Error()
	}
	if id := c.GetString(RequestIDKey); id != "" {
		body[FieldRequestID] = id
	}
	c.AbortWithStatusJSON(statusCode, body)
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"dynosched/pkg/config"
	"dynosched/pkg/heroku"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"
	"dynosched/pkg/response"
	"dynosched/pkg/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Common error type definitions
var (
	ErrInvalidParam = errors.New("invalid parameter")
)

// APIError represents a custom API error structure
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API Error (Code: %d, Message: %s): %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("API Error (Code: %d, Message: %s)", e.Code, e.Message)
}

// Unwrap supports error wrapping
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, err error) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: message, Err: err}
}

// HandleError maps err onto a status code and writes the error response
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var (
		apiErr    *APIError
		cfgErr    *config.ConfigurationError
		valErr    *scheduler.ValidationError
		remoteErr *heroku.RemoteActionError
	)
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Err != nil {
			logger.Warn("API error occurred", zap.Int("code", apiErr.Code), zap.String("message", apiErr.Message), zap.Error(apiErr.Err))
		}
		response.Error(c, apiErr.Code, apiErr.Message, apiErr.Err)
	case errors.As(err, &cfgErr), errors.Is(err, ErrInvalidParam), errors.Is(err, history.ErrUnknownAction):
		response.Error(c, http.StatusBadRequest, "Invalid parameter", err)
	case errors.As(err, &valErr):
		response.Error(c, http.StatusUnprocessableEntity, "App validation failed", err)
	case errors.Is(err, scheduler.ErrAppNotFound):
		response.Error(c, http.StatusNotFound, "Resource not found", err)
	case errors.As(err, &remoteErr):
		response.Error(c, http.StatusBadGateway, heroku.ErrorMessage(err), err)
	default:
		logger.Error("Unexpected error occurred", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// ValidateRequired validates required parameters
func ValidateRequired(value, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidParam, fieldName)
	}
	return nil
}

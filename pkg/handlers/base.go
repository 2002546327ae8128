package handlers

import (
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/logger"
	"dynosched/pkg/scheduler"
	"dynosched/pkg/status"
)

// Service metadata reported by the liveness endpoint
const (
	ServiceName    = "dynosched"
	ServiceVersion = "1.0.0"
)

// HandlerService provides HTTP handlers for the API
type HandlerService struct {
	config    *config.Config
	scheduler *scheduler.Controller
	reporter  *status.Reporter
	startedAt time.Time
}

// NewHandlerService creates a new handler service
func NewHandlerService(cfg *config.Config, ctrl *scheduler.Controller, reporter *status.Reporter) *HandlerService {
	logger.Info("Initializing handler service")
	return &HandlerService{
		config:    cfg,
		scheduler: ctrl,
		reporter:  reporter,
		startedAt: time.Now(),
	}
}

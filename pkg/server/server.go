package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/handlers"
	"dynosched/pkg/logger"
	"dynosched/pkg/middleware"
	"dynosched/pkg/scheduler"
	"dynosched/pkg/status"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server constants
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// HTTPServer serves the control API in daemon mode
type HTTPServer struct {
	server     *http.Server
	router     *gin.Engine
	handlerSvc *handlers.HandlerService
}

// NewHTTPServer creates a new HTTP server instance
func NewHTTPServer(cfg *config.Config, ctrl *scheduler.Controller, reporter *status.Reporter) *HTTPServer {
	if cfg.App.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		router:     gin.New(),
		handlerSvc: handlers.NewHandlerService(cfg, ctrl, reporter),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	logger.Info("HTTP server initialized", zap.String("listen_addr", addr))
	return s
}

// Handler exposes the router, mainly for tests
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) setupRoutes() {
	s.router.Use(
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:   []string{middleware.HeaderRequestID},
			MaxAge:          12 * time.Hour,
		}),
	)

	s.router.GET("/health", s.handlerSvc.Liveness)

	api := s.router.Group("/api/v1")
	{
		api.GET("/status", s.handlerSvc.GetStatus)
		api.GET("/health", s.handlerSvc.GetHealth)
		api.GET("/history", s.handlerSvc.GetHistory)
		api.GET("/stats", s.handlerSvc.GetStats)
		api.GET("/jobs", s.handlerSvc.GetJobs)

		apps := api.Group("/apps")
		apps.POST("", s.handlerSvc.AddApp)
		apps.DELETE("/:name", s.handlerSvc.RemoveApp)
		apps.POST("/:name/on", s.handlerSvc.TurnOn)
		apps.POST("/:name/off", s.handlerSvc.TurnOff)
	}

	logger.Debug("HTTP routes configured", zap.Int("routes", len(s.router.Routes())))
}

// Start blocks serving requests until Shutdown is called
func (s *HTTPServer) Start() error {
	logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}

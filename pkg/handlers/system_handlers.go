package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Liveness reports that the process is serving requests
// @Summary Liveness check
// @Description Reports service metadata and whether the scheduler is running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HandlerService) Liveness(c *gin.Context) {
	env := ""
	if h.config != nil && h.config.App != nil {
		env = h.config.App.Environment
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           ServiceName,
		"version":           ServiceVersion,
		"environment":       env,
		"timestamp":         time.Now().UTC(),
		"uptime":            time.Since(h.startedAt).Round(time.Second).String(),
		"scheduler_running": h.scheduler.IsRunning(),
	})
}

// GetStatus returns the remote status of every app, or of ?app=NAME
// @Summary Get app status
// @Description Returns the Heroku state and dynos of every configured app, or of a single app
// @Tags Status
// @Produce json
// @Param app query string false "Limit to one app"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (h *HandlerService) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if name := c.Query("app"); name != "" {
		st := h.reporter.AppStatus(ctx, name)
		c.JSON(http.StatusOK, gin.H{"app": st})
		return
	}

	apps := h.reporter.Collect(ctx, h.scheduler.AppNames())
	c.JSON(http.StatusOK, gin.H{
		"scheduler_running": h.scheduler.IsRunning(),
		"jobs":              len(h.scheduler.Jobs()),
		"apps":              apps,
		"count":             len(apps),
		"timestamp":         time.Now().UTC(),
	})
}

// GetHealth runs the dyno health check; unhealthy answers 503
// @Summary Dyno health check
// @Description Checks every configured app for crashed or idle dynos
// @Tags Status
// @Produce json
// @Success 200 {object} status.HealthResult
// @Failure 503 {object} status.HealthResult
// @Router /api/v1/health [get]
func (h *HandlerService) GetHealth(c *gin.Context) {
	res := h.reporter.Health(c.Request.Context(), h.scheduler.AppNames())
	code := http.StatusOK
	if !res.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

// GetJobs lists the registered jobs and the schedules that were skipped
// @Summary List scheduled jobs
// @Description Returns the registered cron jobs with their next run times and any skipped schedules
// @Tags Scheduler
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/jobs [get]
func (h *HandlerService) GetJobs(c *gin.Context) {
	jobs := h.scheduler.Jobs()
	skipped := make([]string, 0)
	for _, w := range h.scheduler.Warnings() {
		skipped = append(skipped, w.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":    jobs,
		"count":   len(jobs),
		"skipped": skipped,
		"running": h.scheduler.IsRunning(),
	})
}

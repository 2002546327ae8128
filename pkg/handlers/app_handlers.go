package handlers

import (
	"net/http"

	"dynosched/pkg/config"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"
	"dynosched/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddAppRequest is the body of POST /apps
type AddAppRequest struct {
	Name        string `json:"name" binding:"required"`
	ScheduleOn  string `json:"schedule_on"`
	ScheduleOff string `json:"schedule_off"`
	Timezone    string `json:"timezone"`
	ProcessType string `json:"process_type"`
	Quantity    int    `json:"quantity"`
}

// AddApp adds or replaces an app schedule
// @Summary Add app schedule
// @Description Registers on/off cron jobs for an app, replacing any existing schedule
// @Tags Apps
// @Accept json
// @Produce json
// @Param request body AddAppRequest true "App schedule"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/apps [post]
func (h *HandlerService) AddApp(c *gin.Context) {
	var req AddAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, NewBadRequestError("Invalid JSON format", err))
		return
	}

	schedule := config.AppSchedule{
		Name:        req.Name,
		ScheduleOn:  req.ScheduleOn,
		ScheduleOff: req.ScheduleOff,
		Timezone:    req.Timezone,
		ProcessType: req.ProcessType,
		Quantity:    req.Quantity,
	}
	skipped, err := h.scheduler.AddApp(c.Request.Context(), schedule)
	if err != nil {
		HandleError(c, err)
		return
	}

	warnings := make([]string, 0, len(skipped))
	for _, s := range skipped {
		warnings = append(warnings, s.Error())
	}
	added, _ := h.scheduler.App(schedule.Name)
	response.Success(c, http.StatusCreated, gin.H{
		"app":      added,
		"warnings": warnings,
	})
}

// RemoveApp stops and forgets an app
// @Summary Remove app schedule
// @Description Unregisters the cron jobs of an app
// @Tags Apps
// @Produce json
// @Param name path string true "App name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/apps/{name} [delete]
func (h *HandlerService) RemoveApp(c *gin.Context) {
	name := c.Param("name")
	if err := h.scheduler.RemoveApp(name); err != nil {
		HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": name})
}

// TurnOn scales an app up immediately
// @Summary Turn app on
// @Description Scales the app formation up now and records the action
// @Tags Apps
// @Produce json
// @Param name path string true "App name"
// @Success 200 {object} map[string]interface{} "ActionRecord in data"
// @Failure 404 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/apps/{name}/on [post]
func (h *HandlerService) TurnOn(c *gin.Context) {
	h.executeAction(c, history.ActionTurnOn)
}

// TurnOff scales an app down immediately
// @Summary Turn app off
// @Description Scales the app formation to zero now and records the action
// @Tags Apps
// @Produce json
// @Param name path string true "App name"
// @Success 200 {object} map[string]interface{} "ActionRecord in data"
// @Failure 404 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/apps/{name}/off [post]
func (h *HandlerService) TurnOff(c *gin.Context) {
	h.executeAction(c, history.ActionTurnOff)
}

func (h *HandlerService) executeAction(c *gin.Context, action history.Action) {
	name := c.Param("name")
	if err := ValidateRequired(name, "name"); err != nil {
		HandleError(c, err)
		return
	}

	logger.Info("Manual action requested", logger.AppField(name), logger.ActionField(string(action)),
		zap.String("request_id", c.GetString(response.RequestIDKey)))

	rec, err := h.scheduler.ExecuteAction(c.Request.Context(), name, action)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rec)
}

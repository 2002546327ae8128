package handlers

import (
	"net/http"

	"dynosched/pkg/history"

	"github.com/gin-gonic/gin"
)

// GetHistory returns action records of the last ?days= days (default 7),
// optionally limited to ?app=
// @Summary Get action history
// @Description Returns action records newest first
// @Tags History
// @Produce json
// @Param days query int false "Window in days" default(7)
// @Param app query string false "Limit to one app"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/history [get]
func (h *HandlerService) GetHistory(c *gin.Context) {
	days, err := queryDays(c, DefaultHistoryDays)
	if err != nil {
		HandleError(c, err)
		return
	}

	var records []history.ActionRecord
	if app := c.Query("app"); app != "" {
		records, err = h.scheduler.History().QueryApp(c.Request.Context(), app, days, 0)
	} else {
		records, err = h.scheduler.GetHistory(c.Request.Context(), days)
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":    days,
		"records": records,
		"count":   len(records),
	})
}

// GetStats returns action statistics over ?days= days (default 30)
// @Summary Get action statistics
// @Description Returns success rate and per-app counts over a trailing window
// @Tags History
// @Produce json
// @Param days query int false "Window in days" default(30)
// @Success 200 {object} history.Statistics
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/stats [get]
func (h *HandlerService) GetStats(c *gin.Context) {
	days, err := queryDays(c, DefaultStatsDays)
	if err != nil {
		HandleError(c, err)
		return
	}
	stats, err := h.scheduler.GetStats(c.Request.Context(), days)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Default windows in days
const (
	DefaultHistoryDays = 7
	DefaultStatsDays   = 30
	maxDays            = 3650
)

// queryDays reads the "days" query parameter, falling back to def.
func queryDays(c *gin.Context, def int) (int, error) {
	raw := c.Query("days")
	if raw == "" {
		return def, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 || days > maxDays {
		return 0, fmt.Errorf("%w: days must be an integer between 0 and %d", ErrInvalidParam, maxDays)
	}
	return days, nil
}

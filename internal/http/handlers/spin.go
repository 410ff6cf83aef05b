package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"snowman_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// Spin runs one cooldown-gated reward draw. A draw during cooldown is a soft
// outcome: 200 with ok=false and the remaining wait, not an error.
func (h *Handler) Spin(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, remaining, err := h.SpinService.Spin(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCooldownActive):
			c.JSON(http.StatusOK, gin.H{
				"ok":               false,
				"error":            "cooldown active",
				"retry_in":         formatWait(remaining),
				"retry_in_seconds": int64(remaining.Seconds()),
			})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrUserBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"index":             result.Index,
		"prize":             result.Prize,
		"secondary_balance": result.SecondaryBalance,
		"spin_angle":        result.SpinAngle,
	})
}

// WheelInfo exposes the segment table so the frontend can render the wheel.
func (h *Handler) WheelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"segments":         h.SpinService.Wheel().Segments(),
		"cooldown_seconds": int64(h.SpinService.Cooldown().Seconds()),
	})
}

func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

package handlers

import (
	"errors"
	"net/http"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type SyncTapsRequest struct {
	Taps *int64 `json:"taps" binding:"required,min=0"`
}

// SyncTaps converts a client-reported tap batch into a verified balance
// mutation. A rejected batch is a 200 with status "rejected" so the client
// can reconcile its local state.
func (h *Handler) SyncTaps(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SyncTapsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taps must be a non-negative integer"})
		return
	}

	ctx := c.Request.Context()
	result, err := h.TapService.SyncTaps(ctx, userID, *req.Taps)

	// Missing records can be recreated from the session identity when the
	// deployment opts into auto-create.
	if errors.Is(err, service.ErrUserNotFound) && h.Cfg.TapAutoCreate {
		if claims, ok := getClaims(c); ok && claims.TgID != 0 {
			user := &domain.User{
				TgID:      claims.TgID,
				Username:  claims.Username,
				FirstName: claims.FirstName,
			}
			if createErr := h.UserRepo.Create(ctx, user, nil, 0); createErr == nil {
				result, err = h.TapService.SyncTaps(ctx, user.ID, *req.Taps)
			}
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrUserBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
		case errors.Is(err, service.ErrInvalidTaps):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tap count"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

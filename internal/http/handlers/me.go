package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"snowman_backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// Me returns the full user record plus derived perk state.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.UserRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"user":           user,
		"booster_active": user.BoosterActive(now),
		"autotap_active": user.AutotapActive(now),
		"referral_link": "https://t.me/" + h.Cfg.BotUsername +
			"?startapp=" + strconv.FormatInt(user.TgID, 10),
	})
}

// History returns the user's recent ledger entries.
func (h *Handler) History(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.LedgerRepo.GetByUserID(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// TopUsers returns the balance leaderboard.
func (h *Handler) TopUsers(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	top, err := h.UserRepo.GetTopByBalance(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"top": top})
}

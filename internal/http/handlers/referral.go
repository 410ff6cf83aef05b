package handlers

import (
	"net/http"

	"snowman_backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// ReferralStats returns the referral count, lifetime commission, and the
// list of referred users.
func (h *Handler) ReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.ReferralRepo.GetReferralStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	referrals, err := h.ReferralRepo.GetReferralsByUser(c.Request.Context(), userID)
	if err != nil {
		referrals = []repository.Referral{}
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"referrals": referrals,
	})
}

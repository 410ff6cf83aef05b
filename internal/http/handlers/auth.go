package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/logger"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"
	"snowman_backend/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// Auth verifies Telegram init data, creates the user record on first contact
// and issues a session token. A referrer id in the start parameter makes the
// referral relation stick at creation time only.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}
	if len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	data, ok := telegram.VerifyInitData(req.InitData, h.Cfg.BotToken, h.Cfg.InitDataMaxAge)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram data"})
		return
	}

	ctx := c.Request.Context()

	user, err := h.UserRepo.GetByTgID(ctx, data.User.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
			return
		}

		user = &domain.User{
			TgID:      data.User.ID,
			Username:  data.User.Username,
			FirstName: data.User.FirstName,
		}
		referrerID := h.resolveReferrer(c, data)
		if err := h.UserRepo.Create(ctx, user, referrerID, h.Cfg.ReferralJoinBonus); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}
		logger.Info("user created", "user_id", user.ID, "tg_id", user.TgID,
			"referred", referrerID != nil)
	}

	if user.Banned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
		return
	}

	token, err := service.GenerateJWT(service.SessionClaims{
		UserID:    user.ID,
		TgID:      user.TgID,
		Username:  user.Username,
		FirstName: user.FirstName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// resolveReferrer maps the start parameter (the referrer's Telegram id) to an
// internal user id. Self-referrals and unknown ids yield no referrer.
func (h *Handler) resolveReferrer(c *gin.Context, data *telegram.InitData) *int64 {
	if data.StartParam == "" {
		return nil
	}
	refTgID, err := strconv.ParseInt(data.StartParam, 10, 64)
	if err != nil || refTgID <= 0 || refTgID == data.User.ID {
		return nil
	}

	referrer, err := h.UserRepo.GetByTgID(c.Request.Context(), refTgID)
	if err != nil {
		return nil
	}
	return &referrer.ID
}

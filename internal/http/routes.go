package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"snowman_backend/internal/config"
	"snowman_backend/internal/http/handlers"
	"snowman_backend/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the API surface. When Redis is not configured the
// public limiters fall back to the in-process limiter.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, h *handlers.Handler, version string) {
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	apiLimit := rateLimiter(cfg, cfg.APIRateLimit, cfg.APIRateWindow)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(apiLimit)
	registerAPIRoutes(v1, cfg, h)

	// Legacy /api routes for older clients
	api := r.Group("/api")
	api.Use(apiLimit)
	api.GET("/health", healthHandler.Health)
	registerAPIRoutes(api, cfg, h)
}

// webhookAuth admits only the payment-confirmation collaborator.
func webhookAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Webhook-Token")), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func rateLimiter(cfg *config.Config, limit int, window time.Duration) gin.HandlerFunc {
	if cfg.RedisAddr != "" {
		return middleware.RedisRateLimit(limit, window)
	}
	return middleware.SimpleRateLimit(limit, window)
}

func registerAPIRoutes(api *gin.RouterGroup, cfg *config.Config, h *handlers.Handler) {
	// Auth (stricter limit)
	api.POST("/auth", rateLimiter(cfg, cfg.AuthRateLimit, cfg.AuthRateWindow), h.Auth)

	// User profile and history
	api.GET("/me", middleware.JWT(), h.Me)
	api.GET("/me/history", middleware.JWT(), h.History)
	api.GET("/top", h.TopUsers)

	// Tap sync with a per-user budget
	tapRL := middleware.UserRateLimit("taps", cfg.TapRateLimit, cfg.TapRateWindow)
	api.POST("/taps/sync", middleware.JWT(), tapRL, h.SyncTaps)

	// Daily reward wheel
	spinRL := middleware.UserRateLimit("spin", cfg.SpinRateLimit, cfg.SpinRateWindow)
	api.POST("/spin", middleware.JWT(), spinRL, h.Spin)
	api.GET("/spin/info", h.WheelInfo)

	// Referral system
	api.GET("/referral/stats", middleware.JWT(), h.ReferralStats)

	// Shop and payments
	api.GET("/shop/items", h.ListItems)
	api.POST("/shop/invoice", middleware.JWT(), h.CreateInvoice)
	if cfg.WebhookToken != "" {
		api.POST("/payments/reconcile", webhookAuth(cfg.WebhookToken), h.ReconcilePurchase)
	}
}

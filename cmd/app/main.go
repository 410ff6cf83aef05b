package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snowman_backend/internal/bot"
	"snowman_backend/internal/config"
	"snowman_backend/internal/db"
	"snowman_backend/internal/game"
	httpServer "snowman_backend/internal/http"
	"snowman_backend/internal/http/handlers"
	"snowman_backend/internal/http/middleware"
	"snowman_backend/internal/logger"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	wheel, err := game.NewPrizeWheel(game.DefaultSegments())
	if err != nil {
		logger.Fatal("invalid prize wheel", "error", err)
	}

	tapSvc := service.NewTapService(dbPool, service.TapConfig{
		MaxTapsPerSecond:  cfg.MaxTapsPerSecond,
		Buffer:            cfg.TapBuffer,
		CommissionPercent: cfg.ReferralCommissionPercent,
		MinEarned:         cfg.ReferralMinEarned,
	})
	spinSvc := service.NewSpinService(dbPool, wheel, cfg.SpinCooldown)
	purchases := service.NewPurchaseService(dbPool)

	var tgBot *bot.Bot
	if cfg.BotEnabled {
		tgBot, err = bot.New(cfg, repository.NewUserRepository(dbPool), purchases)
		if err != nil {
			logger.Fatal("failed to start bot", "error", err)
		}
		go tgBot.Start()
	} else {
		logger.Warn("bot disabled, invoices and payment confirmations unavailable")
	}

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var invoices handlers.InvoiceCreator
	if tgBot != nil {
		invoices = tgBot
	}
	h := handlers.NewHandler(dbPool, cfg, tapSvc, spinSvc, purchases, invoices)
	httpServer.RegisterRoutes(r, dbPool, cfg, h, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	if tgBot != nil {
		tgBot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"snowman_backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort          string
	DatabaseURL      string
	BotToken         string
	BotUsername      string
	JWTSecret        string
	AdminTelegramIDs []int64
	BotEnabled       bool
	DailyReminder    bool
	WebAppURL        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Anti-cheat limits for tap sync
	MaxTapsPerSecond int64
	TapBuffer        int64
	// TapAutoCreate controls whether /taps/sync creates unknown users
	// instead of returning 404.
	TapAutoCreate bool

	// Referral economy
	ReferralCommissionPercent int64
	ReferralMinEarned         int64
	ReferralJoinBonus         int64

	SpinCooldown time.Duration

	// WebhookToken guards the HTTP payment-reconcile endpoint; empty
	// disables it (the bot loop is then the only confirmation source).
	WebhookToken string

	// initData freshness window, 0 disables the check
	InitDataMaxAge time.Duration

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
	TapRateLimit   int
	TapRateWindow  time.Duration
	SpinRateLimit  int
	SpinRateWindow time.Duration
}

// Load reads configuration from the environment (.env is honored).
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	botUsername := os.Getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "snowmanadventurebot"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// !! ADMIN_TELEGRAM_IDS is comma separated !!
	var adminIDs []int64
	if s := os.Getenv("ADMIN_TELEGRAM_IDS"); s != "" {
		for _, idStr := range strings.Split(s, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				adminIDs = append(adminIDs, id)
			}
		}
	}

	webAppURL := os.Getenv("WEBAPP_URL")
	if webAppURL == "" {
		webAppURL = "https://t.me/" + botUsername + "/play"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		BotToken:         botToken,
		BotUsername:      botUsername,
		JWTSecret:        jwtSecret,
		AdminTelegramIDs: adminIDs,
		BotEnabled:       os.Getenv("BOT_ENABLED") != "false",
		DailyReminder:    os.Getenv("BOT_DAILY_REMINDER") != "false",
		WebAppURL:        webAppURL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		MaxTapsPerSecond: envInt64("MAX_TAPS_PER_SECOND", 15),
		TapBuffer:        envInt64("TAP_BUFFER", 50),
		TapAutoCreate:    os.Getenv("TAP_AUTO_CREATE") == "true",

		ReferralCommissionPercent: envInt64("REFERRAL_COMMISSION_PERCENT", 10),
		ReferralMinEarned:         envInt64("REFERRAL_MIN_EARNED", 10),
		ReferralJoinBonus:         envInt64("REFERRAL_JOIN_BONUS", 500),

		WebhookToken: os.Getenv("WEBHOOK_TOKEN"),

		SpinCooldown:   envDuration("SPIN_COOLDOWN_HOURS", 24) * time.Hour,
		InitDataMaxAge: envDuration("INITDATA_MAX_AGE_SECONDS", 3600) * time.Second,

		APIRateLimit:   envInt("API_RATE_LIMIT", 30),
		APIRateWindow:  envDuration("API_RATE_WINDOW_SECONDS", 60) * time.Second,
		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow: envDuration("AUTH_RATE_WINDOW_SECONDS", 60) * time.Second,
		TapRateLimit:   envInt("TAP_RATE_LIMIT", 30),
		TapRateWindow:  envDuration("TAP_RATE_WINDOW_SECONDS", 60) * time.Second,
		SpinRateLimit:  envInt("SPIN_RATE_LIMIT", 10),
		SpinRateWindow: envDuration("SPIN_RATE_WINDOW_SECONDS", 60) * time.Second,
	}
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envInt64(name string, def int64) int64 {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envDuration(name string, def int64) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(def)
}

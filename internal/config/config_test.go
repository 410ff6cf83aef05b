package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BOT_TOKEN", "12345:test-token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.MaxTapsPerSecond != 15 || cfg.TapBuffer != 50 {
		t.Errorf("tap cap defaults = %d/%d, want 15/50", cfg.MaxTapsPerSecond, cfg.TapBuffer)
	}
	if cfg.SpinCooldown != 24*time.Hour {
		t.Errorf("spin cooldown = %v, want 24h", cfg.SpinCooldown)
	}
	if cfg.TapRateLimit != 30 || cfg.TapRateWindow != time.Minute {
		t.Errorf("tap rate limit = %d/%v, want 30/1m", cfg.TapRateLimit, cfg.TapRateWindow)
	}
	// The reward draw has its own, tighter budget.
	if cfg.SpinRateLimit != 10 || cfg.SpinRateWindow != time.Minute {
		t.Errorf("spin rate limit = %d/%v, want 10/1m", cfg.SpinRateLimit, cfg.SpinRateWindow)
	}
	if cfg.TapAutoCreate {
		t.Error("tap auto-create should default to off")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SPIN_RATE_LIMIT", "3")
	t.Setenv("SPIN_RATE_WINDOW_SECONDS", "120")
	t.Setenv("TAP_AUTO_CREATE", "true")

	cfg := Load()

	if cfg.SpinRateLimit != 3 || cfg.SpinRateWindow != 2*time.Minute {
		t.Errorf("spin rate limit = %d/%v, want 3/2m", cfg.SpinRateLimit, cfg.SpinRateWindow)
	}
	if !cfg.TapAutoCreate {
		t.Error("tap auto-create should honor the env flag")
	}
}

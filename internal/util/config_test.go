package util

import (
	"testing"
	"time"
)

func TestNewLockoutConfig_Defaults(t *testing.T) {
	t.Setenv("LOGIN_LOCK_THRESHOLD", "")
	t.Setenv("LOGIN_LOCK_DURATION", "")
	t.Setenv("GATE_LOCK_DURATION", "")

	cfg := NewLockoutConfig()
	if cfg.LoginThreshold != defaultLoginLockThreshold {
		t.Fatalf("expected threshold %d, got %d", defaultLoginLockThreshold, cfg.LoginThreshold)
	}
	if cfg.LoginLockDuration != time.Hour {
		t.Fatalf("expected 1h login lock, got %s", cfg.LoginLockDuration)
	}
	if cfg.GateLockDuration != 5*time.Minute {
		t.Fatalf("expected 5m gate lock, got %s", cfg.GateLockDuration)
	}
}

func TestNewLockoutConfig_Overrides(t *testing.T) {
	t.Setenv("LOGIN_LOCK_THRESHOLD", "3")
	t.Setenv("GATE_LOCK_DURATION", "90s")
	t.Setenv("LOGIN_CAPTCHA_REQUIRED", "true")

	cfg := NewLockoutConfig()
	if cfg.LoginThreshold != 3 {
		t.Fatalf("expected threshold 3, got %d", cfg.LoginThreshold)
	}
	if cfg.GateLockDuration != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.GateLockDuration)
	}
	if !cfg.LoginCaptchaRequired {
		t.Fatal("expected captcha to be required")
	}
}

func TestParseDurationOrDefault_RejectsInvalid(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "soon")
	if got := NewSweeperConfig().Interval; got != defaultSweepInterval {
		t.Fatalf("expected default %s, got %s", defaultSweepInterval, got)
	}

	t.Setenv("SWEEP_INTERVAL", "-5s")
	if got := NewSweeperConfig().Interval; got != defaultSweepInterval {
		t.Fatalf("expected default for negative duration, got %s", got)
	}
}

func TestNewCookieConfig_SecureOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if !NewCookieConfig(time.Hour).Secure {
		t.Fatal("expected secure cookie in production")
	}

	t.Setenv("APP_ENV", "dev")
	cfg := NewCookieConfig(time.Hour)
	if cfg.Secure {
		t.Fatal("expected insecure cookie in development")
	}
	if cfg.Name != RefreshCookieName || cfg.MaxAge != time.Hour {
		t.Fatalf("unexpected cookie config: %+v", cfg)
	}
}

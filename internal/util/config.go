package util

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

// LoadEnv reads .env into the process environment once. Missing file is not an error.
func LoadEnv() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour

	defaultLoginLockThreshold = 5
	defaultLoginLockDuration  = time.Hour
	defaultGateLockThreshold  = 5
	defaultGateLockDuration   = 5 * time.Minute

	defaultCaptchaTTL    = 5 * time.Minute
	defaultCaptchaLength = 4

	defaultSweepInterval     = 60 * time.Second
	defaultClockSyncInterval = time.Minute
	defaultResetTicketTTL    = 10 * time.Minute

	RefreshCookieName = "refresh_token"
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

type TokenConfig struct {
	JwtSecretKey []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func NewTokenConfig() *TokenConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	return &TokenConfig{
		JwtSecretKey: []byte(secret),
		AccessTTL:    parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:   parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

// CookieConfig describes the refresh-token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func NewCookieConfig(refreshTTL time.Duration) *CookieConfig {
	return &CookieConfig{
		Name:   RefreshCookieName,
		Secure: !IsDevelopment(),
		MaxAge: refreshTTL,
	}
}

// IsDevelopment reports whether APP_ENV selects local development.
func IsDevelopment() bool {
	switch strings.ToLower(os.Getenv("APP_ENV")) {
	case "dev", "development", "local":
		return true
	}
	return false
}

type LockoutConfig struct {
	LoginThreshold       int
	LoginLockDuration    time.Duration
	GateThreshold        int
	GateLockDuration     time.Duration
	LoginCaptchaRequired bool
	WebhookURL           string
}

func NewLockoutConfig() *LockoutConfig {
	return &LockoutConfig{
		LoginThreshold:       parseIntOrDefault("LOGIN_LOCK_THRESHOLD", defaultLoginLockThreshold),
		LoginLockDuration:    parseDurationOrDefault("LOGIN_LOCK_DURATION", defaultLoginLockDuration),
		GateThreshold:        parseIntOrDefault("GATE_LOCK_THRESHOLD", defaultGateLockThreshold),
		GateLockDuration:     parseDurationOrDefault("GATE_LOCK_DURATION", defaultGateLockDuration),
		LoginCaptchaRequired: parseBoolOrDefault("LOGIN_CAPTCHA_REQUIRED", false),
		WebhookURL:           os.Getenv("LOCKOUT_WEBHOOK_URL"),
	}
}

type CaptchaConfig struct {
	TTL          time.Duration
	Length       int
	ImageBaseURL string
}

func NewCaptchaConfig() *CaptchaConfig {
	return &CaptchaConfig{
		TTL:          parseDurationOrDefault("CAPTCHA_TTL", defaultCaptchaTTL),
		Length:       parseIntOrDefault("CAPTCHA_LENGTH", defaultCaptchaLength),
		ImageBaseURL: strings.TrimSuffix(os.Getenv("CAPTCHA_IMAGE_URL"), "/"),
	}
}

type SweeperConfig struct {
	Interval          time.Duration
	ClockSyncInterval time.Duration
	ResetTicketTTL    time.Duration
}

func NewSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:          parseDurationOrDefault("SWEEP_INTERVAL", defaultSweepInterval),
		ClockSyncInterval: parseDurationOrDefault("CLOCK_SYNC_INTERVAL", defaultClockSyncInterval),
		ResetTicketTTL:    parseDurationOrDefault("RESET_TICKET_TTL", defaultResetTicketTTL),
	}
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Invalid %s: %s, using default %d", varName, v, def)
	}
	return def
}

func parseBoolOrDefault(varName string, def bool) bool {
	if v := os.Getenv(varName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("Invalid %s: %s, using default %t", varName, v, def)
	}
	return def
}

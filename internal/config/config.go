package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAccessTokenTTL   = "15m"
	defaultRefreshTokenTTL  = "168h"
	defaultRenewalThreshold = "24h"
	defaultLockoutMinutes   = "30"
	defaultMaxLoginAttempts = "5"
	defaultMaxTokensPerUser = "5"
	defaultJWTSecret        = "change-me-jwt-secret"
)

type Config struct {
	AppEnv      string
	DatabaseURL string

	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RenewalThreshold time.Duration

	MaxLoginAttempts int
	LockoutDuration  time.Duration
	MaxTokensPerUser int
}

// Load reads configuration from the environment (and a .env file when
// present) and validates it. A missing or default JWT secret in a prod-like
// environment is a hard startup failure, never a silent fallback.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", "librarium.db"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	if cfg.AccessTokenTTL, err = parseDurationEnv("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = parseDurationEnv("REFRESH_TOKEN_TTL", defaultRefreshTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RenewalThreshold, err = parseDurationEnv("REFRESH_RENEWAL_THRESHOLD", defaultRenewalThreshold); err != nil {
		return nil, err
	}
	lockoutMinutes, err := parseIntEnv("LOCKOUT_MINUTES", defaultLockoutMinutes)
	if err != nil {
		return nil, err
	}
	cfg.LockoutDuration = time.Duration(lockoutMinutes) * time.Minute
	if cfg.MaxLoginAttempts, err = parseIntEnv("MAX_LOGIN_ATTEMPTS", defaultMaxLoginAttempts); err != nil {
		return nil, err
	}
	if cfg.MaxTokensPerUser, err = parseIntEnv("MAX_TOKENS_PER_USER", defaultMaxTokensPerUser); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be > 0")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be > 0")
	}
	if cfg.RenewalThreshold <= 0 {
		return fmt.Errorf("REFRESH_RENEWAL_THRESHOLD must be > 0")
	}
	if cfg.RenewalThreshold >= cfg.RefreshTokenTTL {
		return fmt.Errorf("REFRESH_RENEWAL_THRESHOLD must be shorter than REFRESH_TOKEN_TTL")
	}
	if cfg.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_MINUTES must be > 0")
	}
	if cfg.MaxLoginAttempts <= 0 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be > 0")
	}
	if cfg.MaxTokensPerUser <= 0 {
		return fmt.Errorf("MAX_TOKENS_PER_USER must be > 0")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}

	if isProdLike(cfg.AppEnv) {
		if cfg.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if len(cfg.JWTSecret) < 32 {
			return fmt.Errorf("in prod/release JWT_SECRET must be at least 32 characters")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	switch env {
	case "prod", "production", "release", "staging":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func parseIntEnv(key, fallback string) (int, error) {
	raw := getEnv(key, fallback)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return n, nil
}

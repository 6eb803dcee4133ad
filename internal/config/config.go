package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"invoicing-backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	CORSOrigins []string

	// Database
	DatabaseURL string

	// Logging
	Log logger.Config

	// Stripe
	StripeSecretKey      string
	StripeAPIURL         string // empty means the public API
	StripeTimeout        time.Duration
	OnboardingReturnURL  string
	OnboardingRefreshURL string

	// Identity precondition
	IdentityAttempts uint64
	IdentityBackoff  time.Duration
	IdentityTimeout  time.Duration

	// Documents
	PaymentTermDays int
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripeAPIURL:         getEnv("STRIPE_API_URL", ""),
		OnboardingReturnURL:  getEnv("ONBOARDING_RETURN_URL", "http://localhost:3000/settings/payments?onboarding=done"),
		OnboardingRefreshURL: getEnv("ONBOARDING_REFRESH_URL", "http://localhost:3000/settings/payments?onboarding=refresh"),
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	var err error
	if cfg.StripeTimeout, err = getDuration("STRIPE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdentityBackoff, err = getDuration("IDENTITY_BACKOFF", time.Second); err != nil {
		return nil, err
	}
	if cfg.IdentityTimeout, err = getDuration("IDENTITY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	attempts, err := getInt("IDENTITY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, fmt.Errorf("IDENTITY_ATTEMPTS must be at least 1, got %d", attempts)
	}
	cfg.IdentityAttempts = uint64(attempts)
	if cfg.PaymentTermDays, err = getInt("PAYMENT_TERM_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.PaymentTermDays < 0 {
		return nil, fmt.Errorf("PAYMENT_TERM_DAYS must not be negative, got %d", cfg.PaymentTermDays)
	}

	return cfg, nil
}

// RequireDatabase is checked by commands that need Postgres.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing required environment variable: DATABASE_URL")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// MetricsAddr is the listen address of the separate Prometheus listener.
	// Defaults to "127.0.0.1:9091"; "off" disables it.
	MetricsAddr string

	// StorageDriver selects the persistence backend: "postgres" (default) or "memory".
	StorageDriver string

	// DatabaseURL is the Postgres connection string.
	// Required when StorageDriver is "postgres".
	DatabaseURL string

	// AutoMigrate applies pending migrations on startup when true.
	AutoMigrate bool

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// JWTSecret is the HS256 key used to verify bearer tokens. Required.
	JWTSecret string

	// AppBaseURL is where the checkout success and cancel pages live.
	AppBaseURL string

	Stripe Stripe
}

// Stripe holds the optional billing settings. When SecretKey is empty,
// billing endpoints answer 503.
type Stripe struct {
	SecretKey      string
	WebhookSecret  string
	PriceIDMonthly string
	PriceIDYearly  string
}

// MetricsEnabled reports whether the Prometheus listener should start.
func (c Config) MetricsEnabled() bool {
	return !strings.EqualFold(c.MetricsAddr, "off")
}

// Enabled reports whether checkout sessions can be created.
func (s Stripe) Enabled() bool {
	return s.SecretKey != ""
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", "127.0.0.1:9091"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSOrigins:   splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AppBaseURL:    strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
		Stripe: Stripe{
			SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDMonthly: os.Getenv("STRIPE_PRICE_ID_MONTHLY"),
			PriceIDYearly:  os.Getenv("STRIPE_PRICE_ID_YEARLY"),
		},
	}

	autoMigrate, err := strconv.ParseBool(getEnv("AUTO_MIGRATE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("AUTO_MIGRATE: %w", err)
	}
	cfg.AutoMigrate = autoMigrate

	switch cfg.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver)
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StorageDriver == StoragePostgres {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

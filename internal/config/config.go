// Package config centralizes environment configuration. The JWT signing
// secret is loaded here once and injected into constructors; no package
// reads it from the environment on its own.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration.
type Config struct {
	Addr   string
	PGDSN  string
	Issuer string

	// AuthSecret signs both standard and elevated credentials.
	AuthSecret string

	StandardTokenTTL time.Duration
	ElevatedTokenTTL time.Duration

	RateBurst  int
	RatePerSec int
	MaxBody    int64
}

// Load reads configuration from the environment with development-safe
// defaults for everything except the signing secret.
func Load() (Config, error) {
	cfg := Config{
		Addr:             envOr("JOBDESK_ADDR", ":8080"),
		PGDSN:            os.Getenv("JOBDESK_PG_DSN"),
		Issuer:           envOr("JOBDESK_ISSUER", "jobdesk"),
		AuthSecret:       strings.TrimSpace(os.Getenv("JOBDESK_AUTH_SECRET")),
		StandardTokenTTL: envDuration("JOBDESK_TOKEN_TTL", 24*time.Hour),
		ElevatedTokenTTL: envDuration("JOBDESK_ELEVATED_TTL", 15*time.Minute),
		RateBurst:        envInt("JOBDESK_RATE_BURST", 20),
		RatePerSec:       envInt("JOBDESK_RATE_PER_SEC", 10),
		MaxBody:          int64(envInt("JOBDESK_MAX_BODY", 1<<20)),
	}
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("JOBDESK_AUTH_SECRET is required")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

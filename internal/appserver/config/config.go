// Package config loads and validates the app server's environment, following
// the same aggregate-errors pattern as the load balancer's config package and
// the teacher's internal/v1/config.ValidateEnv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config is the app server's fully resolved, validated configuration.
type Config struct {
	HTTPPort    int
	JWTSecret   string
	LBSecret    string
	DatabaseURL string
	RedisURL    string
	OllamaURL   string
	Domain      string
	Production  bool
	SessionTTL  time.Duration
}

// Load reads environment variables and aggregates every validation failure.
func Load() (*Config, error) {
	var errs []string

	cfg := &Config{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LBSecret:    getEnvOrDefault("LB_SECRET", "secret"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		OllamaURL:   getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		Domain:      getEnvOrDefault("DOMAIN", "http://localhost:3000"),
		Production:  strings.EqualFold(os.Getenv("APP_ENV"), "production"),
		SessionTTL:  24 * time.Hour,
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET must be set")
	}
	if cfg.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL must be set")
	}

	port, err := intEnvOrDefault("HTTP_PORT", 8081)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.HTTPPort = port

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnvOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

// LogValidated logs the resolved configuration with secrets redacted.
func LogValidated(log *zap.Logger, cfg *Config) {
	log.Info("app server configuration",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("domain", cfg.Domain),
		zap.Bool("production", cfg.Production),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)
}

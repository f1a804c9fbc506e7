// Package config loads and validates the load balancer's environment, following
// the teacher's aggregate-errors-don't-fail-fast pattern (internal/v1/config).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"go.uber.org/zap"
)

// BackendSpec is one entry parsed out of BACKEND_SERVERS.
type BackendSpec struct {
	ID      types.BackendID
	BaseURL string
}

// Config is the load balancer's fully resolved, validated configuration.
type Config struct {
	Host                string
	Port                int
	Backends            []BackendSpec
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	StickyCookieName    string
	StickyCookieMaxAge  time.Duration
	LBSecret            string
	RateLimitPerSecond  int
	RateLimitBurstSize  int
	Production          bool
}

var defaultBackends = []string{
	"http://localhost:3001",
	"http://localhost:3002",
	"http://localhost:3003",
}

// Load reads environment variables, applying the original load balancer's
// defaults, and aggregates every validation failure into one error instead of
// stopping at the first.
func Load() (*Config, error) {
	var errs []string

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		StickyCookieName:   getEnvOrDefault("STICKY_COOKIE_NAME", "lb_server_id"),
		LBSecret:           getEnvOrDefault("LB_SECRET", "secret"),
		Production:         strings.EqualFold(os.Getenv("APP_ENV"), "production"),
	}

	port, err := intEnvOrDefault("PORT", 8080)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.Port = port

	interval, err := intEnvOrDefault("HEALTH_CHECK_INTERVAL", 10)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.HealthCheckInterval = time.Duration(interval) * time.Second

	timeout, err := intEnvOrDefault("HEALTH_CHECK_TIMEOUT", 5)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.HealthCheckTimeout = time.Duration(timeout) * time.Second

	maxAge, err := intEnvOrDefault("STICKY_COOKIE_MAX_AGE", 86400)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.StickyCookieMaxAge = time.Duration(maxAge) * time.Second

	rps, err := intEnvOrDefault("RATE_LIMIT_PER_SECOND", 1)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.RateLimitPerSecond = rps

	burst, err := intEnvOrDefault("RATE_LIMIT_BURST_SIZE", 100)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.RateLimitBurstSize = burst

	backends, err := parseBackends(getEnvOrDefault("BACKEND_SERVERS", strings.Join(defaultBackends, ",")))
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.Backends = backends

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// parseBackends accepts comma-separated "host:port", "scheme://host:port", or
// "id=host:port" entries, auto-assigning ids "server-{1-based index}" when one
// isn't given, matching the original load balancer's BACKEND_SERVERS parsing.
func parseBackends(raw string) ([]BackendSpec, error) {
	parts := strings.Split(raw, ",")
	specs := make([]BackendSpec, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id := fmt.Sprintf("server-%d", i+1)
		url := part
		if idx := strings.Index(part, "="); idx > 0 {
			id = part[:idx]
			url = part[idx+1:]
		}
		if !strings.Contains(url, "://") {
			url = "http://" + url
		}
		specs = append(specs, BackendSpec{ID: types.BackendID(id), BaseURL: url})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("BACKEND_SERVERS must name at least one backend")
	}
	return specs, nil
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

// LogValidated logs the resolved configuration with the shared secret redacted.
func LogValidated(log *zap.Logger, cfg *Config) {
	log.Info("load balancer configuration",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("backend_count", len(cfg.Backends)),
		zap.Duration("health_check_interval", cfg.HealthCheckInterval),
		zap.Duration("health_check_timeout", cfg.HealthCheckTimeout),
		zap.String("sticky_cookie_name", cfg.StickyCookieName),
		zap.Bool("production", cfg.Production),
	)
}

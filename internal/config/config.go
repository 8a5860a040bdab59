package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultTTLMinutes = 60
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	DatabaseDriver string   `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	JWTSecret      string   `env:"JWT_SECRET"`
	JWTTTLMinutes  int      `env:"JWT_TTL_MINUTES" envDefault:"60"`
	CORSOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	// TrustedProxies lists proxy addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	RateLimitAuthPerMinute int    `env:"RATE_LIMIT_AUTH_PER_MIN" envDefault:"12"`
	RateLimitRedisAddr     string `env:"RATE_LIMIT_REDIS_ADDR"`
	RateLimitRedisPassword string `env:"RATE_LIMIT_REDIS_PASSWORD"`
	RateLimitRedisDB       int    `env:"RATE_LIMIT_REDIS_DB" envDefault:"0"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`

	// JWTTTL is derived from JWTTTLMinutes.
	JWTTTL time.Duration
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.CORSOrigins = normalizeOrigins(cfg.CORSOrigins)
	cfg.TrustedProxies = trimEntries(cfg.TrustedProxies)

	if cfg.JWTTTLMinutes <= 0 {
		cfg.JWTTTLMinutes = defaultTTLMinutes
	}
	cfg.JWTTTL = time.Duration(cfg.JWTTTLMinutes) * time.Minute

	if cfg.DatabaseDriver != DriverPostgres && cfg.DatabaseDriver != DriverSQLite {
		return Config{}, fmt.Errorf("DATABASE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func normalizeOrigins(parts []string) []string {
	out := trimEntries(parts)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func trimEntries(parts []string) []string {
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/ThemedEdits/SignUp/internal/auth"
	"github.com/ThemedEdits/SignUp/internal/store"
)

// Session store backends.
const (
	SessionStoreSQLite = "sqlite"
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"SIGNUP_ENV" envDefault:"development"`
	ServerHost string `env:"SIGNUP_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SIGNUP_SERVER_PORT" envDefault:"3000"`

	DBDriver string `env:"SIGNUP_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"SIGNUP_DB_DSN" envDefault:"./data/signup.db"`

	SessionStore    string        `env:"SIGNUP_SESSION_STORE" envDefault:"sqlite"`
	SessionSecret   string        `env:"SIGNUP_SESSION_SECRET,required"`
	SessionLifetime time.Duration `env:"SIGNUP_SESSION_LIFETIME" envDefault:"24h"`

	// Redis session store
	RedisURL    string `env:"SIGNUP_REDIS_URL"`
	RedisPrefix string `env:"SIGNUP_REDIS_PREFIX" envDefault:"signup:session:"`

	PasswordHash string `env:"SIGNUP_PASSWORD_HASH" envDefault:"bcrypt"`
	BcryptCost   int    `env:"SIGNUP_BCRYPT_COST" envDefault:"8"`

	// Bootstrap admin, created on first boot only
	AdminUsername string `env:"SIGNUP_ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"SIGNUP_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"SIGNUP_ADMIN_PASSWORD" envDefault:"admin123"`

	CORSOrigins    []string `env:"SIGNUP_CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	StaticDir      string   `env:"SIGNUP_STATIC_DIR"`
	MetricsEnabled bool     `env:"SIGNUP_METRICS_ENABLED" envDefault:"true"`

	LogLevel  string `env:"SIGNUP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SIGNUP_LOG_FORMAT" envDefault:"text"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisSessions returns true if sessions are kept in Redis.
func (c Config) UseRedisSessions() bool {
	return c.SessionStore == SessionStoreRedis
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("SIGNUP_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// Validate checks value ranges and option combinations. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("SIGNUP_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret)))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			errs = append(errs, errors.New("SIGNUP_SESSION_SECRET is a known default value and must not be used"))
		}
	}

	switch c.Env {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("SIGNUP_ENV must be development or production, got %q", c.Env))
	}

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SIGNUP_SERVER_PORT %d out of range", c.ServerPort))
	}

	if !store.IsSupportedDriver(c.DBDriver) {
		errs = append(errs, fmt.Errorf("SIGNUP_DB_DRIVER %q is not supported (sqlite, mysql, postgres)", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("SIGNUP_DB_DSN must not be empty"))
	}

	switch c.SessionStore {
	case SessionStoreSQLite:
		if c.DBDriver != store.DriverSQLite {
			errs = append(errs, fmt.Errorf("SIGNUP_SESSION_STORE sqlite requires SIGNUP_DB_DRIVER sqlite, got %q", c.DBDriver))
		}
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("SIGNUP_REDIS_URL is required when SIGNUP_SESSION_STORE is redis"))
		} else if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errs = append(errs, errors.New("SIGNUP_REDIS_URL must be a redis:// or rediss:// URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("SIGNUP_SESSION_STORE %q is not supported (sqlite, memory, redis)", c.SessionStore))
	}

	if c.SessionLifetime <= 0 {
		errs = append(errs, fmt.Errorf("SIGNUP_SESSION_LIFETIME must be positive, got %s", c.SessionLifetime))
	}

	switch c.PasswordHash {
	case auth.AlgorithmBcrypt:
		if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
			errs = append(errs, fmt.Errorf("SIGNUP_BCRYPT_COST must be between %d and %d, got %d",
				bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
		}
	case auth.AlgorithmArgon2id:
	default:
		errs = append(errs, fmt.Errorf("SIGNUP_PASSWORD_HASH %q is not supported (bcrypt, argon2id)", c.PasswordHash))
	}

	if c.AdminUsername == "" || c.AdminEmail == "" || len([]rune(c.AdminPassword)) < 6 {
		errs = append(errs, errors.New("SIGNUP_ADMIN_USERNAME, SIGNUP_ADMIN_EMAIL and a SIGNUP_ADMIN_PASSWORD of at least 6 characters are required"))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("SIGNUP_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}

/*
config.go - Runtime configuration from the environment

SOURCES (later wins):
  1. Defaults below
  2. .env file in the working directory (optional)
  3. Process environment
  4. Command-line flags (-port, -db), applied by cmd/server

KEYS:
  PORT          HTTP port                              (8080)
  DB_PATH       SQLite database path, ":memory:" ok    (workhours.db)
  APP_ENV       development | production               (development)
  LOG_LEVEL     debug | info | warn | error            (info)
  JWT_SECRET    HS256 signing secret, required outside development
  BILLING_CRON    cron spec for closing billing periods, empty disables
  CARRYOVER_CRON  cron spec for the year-end carryover update, empty disables
  CORS_ORIGINS    comma-separated allowed origins
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DevelopmentSecret signs tokens when no JWT_SECRET is configured in
// development.
const DevelopmentSecret = "workhours-dev-secret"

var defaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

type Config struct {
	Port          int
	DBPath        string
	AppEnv        string
	LogLevel      string
	JWTSecret     string
	BillingCron   string
	CarryoverCron string
	CORSOrigins   []string
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool { return c.AppEnv == EnvDevelopment }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnvOrDefault("DB_PATH", "workhours.db"),
		AppEnv:        strings.ToLower(getEnvOrDefault("APP_ENV", EnvDevelopment)),
		LogLevel:      strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		BillingCron:   strings.TrimSpace(os.Getenv("BILLING_CRON")),
		CarryoverCron: strings.TrimSpace(os.Getenv("CARRYOVER_CRON")),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
	}

	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	cfg.Port = port

	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = defaultCORSOrigins
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements and fills development defaults.
func (c *Config) Validate() error {
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.AppEnv)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = DevelopmentSecret
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

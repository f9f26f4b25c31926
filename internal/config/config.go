// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the environment surface of the automaker server. The API key is
// the single shared secret; leaving it unset yields a fail-closed server
// that rejects every login.
type Config struct {
	APIKey         string `env:"AUTOMAKER_API_KEY"`
	Host           string `env:"AUTOMAKER_HOST" envDefault:"127.0.0.1"`
	Port           int    `env:"AUTOMAKER_PORT" envDefault:"3008"`
	DataDir        string `env:"AUTOMAKER_DATA_DIR" envDefault:"./data"`
	SessionBackend string `env:"AUTOMAKER_SESSION_BACKEND" envDefault:"memory"`
	RedisURL       string `env:"AUTOMAKER_REDIS_URL"`
	SecureCookies  bool   `env:"AUTOMAKER_SECURE_COOKIES"`
	LogLevel       string `env:"AUTOMAKER_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the process environment. A .env file in the
// working directory is folded in first when present; real environment
// variables win over file entries.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.SessionBackend {
	case "memory", "bolt", "redis":
	default:
		return Config{}, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
	if cfg.SessionBackend == "redis" && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("AUTOMAKER_REDIS_URL is required for the redis session backend")
	}
	return cfg, nil
}

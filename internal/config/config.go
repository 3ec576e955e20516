// Package config loads service configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds everything the binaries need. Production binaries call
// RequireDatabase after Load; integrations degrade gracefully when their
// keys are unset.
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	Port string `env:"PORT" envDefault:"8080"`

	// EngineAPIKey guards POST /api/pipeline/run. Empty disables the check.
	EngineAPIKey string `env:"ENGINE_API_KEY"`

	FinnhubAPIKey    string `env:"FINNHUB_API_KEY"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env if present, then parses the environment. A missing .env
// file is not an error; a malformed one is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// RequireDatabase errors when no Postgres DSN is configured. Binaries that
// support in-memory storage skip this check in memory mode.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required (or run with --use-memory)")
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

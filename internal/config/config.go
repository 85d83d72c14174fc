package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"7420"`
	APIBaseURL            string `env:"API_BASE_URL,required"`
	DatabasePath          string `env:"DATABASE_PATH" envDefault:"punchd.db"`
	CredentialsPath       string `env:"CREDENTIALS_PATH" envDefault:"credentials.enc"`
	EncryptionKey         string `env:"ENCRYPTION_KEY"`
	Timezone              string `env:"TIMEZONE" envDefault:"Europe/Berlin"`
	ResyncIntervalMinutes int    `env:"RESYNC_INTERVAL_MINUTES" envDefault:"5"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

func (c *Config) ResyncInterval() time.Duration {
	return time.Duration(c.ResyncIntervalMinutes) * time.Minute
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL")
	}
	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		}
	}
	if c.ResyncIntervalMinutes < 1 {
		return fmt.Errorf("RESYNC_INTERVAL_MINUTES must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

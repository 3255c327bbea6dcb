package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/typerace/go/internal/round"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	NatsURL  string `yaml:"nats_url"`

	Round struct {
		DurationSeconds int `yaml:"duration_seconds"`
	} `yaml:"round"`

	Auth struct {
		TokenTTLHours int `yaml:"token_ttl_hours"`
	} `yaml:"auth"`

	Outbox struct {
		FallbackIntervalSeconds int   `yaml:"fallback_interval_seconds"`
		BatchSize               int32 `yaml:"batch_size"`
	} `yaml:"outbox"`

	// only ever taken from the environment
	JWTSecret string `yaml:"-"`
}

func defaultConfig() *Config {
	cfg := &Config{
		Port:     "8080",
		LogLevel: "info",
	}
	cfg.Round.DurationSeconds = int(round.DefaultDuration / time.Second)
	cfg.Auth.TokenTTLHours = 24 * 30
	cfg.Outbox.FallbackIntervalSeconds = 5
	cfg.Outbox.BatchSize = 100
	return cfg
}

func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.Round.DurationSeconds) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) FallbackInterval() time.Duration {
	return time.Duration(c.Outbox.FallbackIntervalSeconds) * time.Second
}

func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the optional YAML file at path, then applies environment
// overrides. A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.NatsURL = getEnv("NATS_URL", config.NatsURL)
	config.JWTSecret = getEnv("JWT_SECRET", "")
	config.Round.DurationSeconds = getEnvAsInt("ROUND_DURATION_SECONDS", config.Round.DurationSeconds)

	if config.Round.DurationSeconds <= 0 {
		return nil, fmt.Errorf("round duration must be positive, got %d", config.Round.DurationSeconds)
	}
	if config.Outbox.FallbackIntervalSeconds <= 0 {
		config.Outbox.FallbackIntervalSeconds = 5
	}
	if config.Outbox.BatchSize <= 0 {
		config.Outbox.BatchSize = 100
	}
	return config, nil
}

// signingSecret returns the configured JWT secret or a random one. Tokens
// signed with a random secret do not survive a restart.
func (c *Config) signingSecret() ([]byte, error) {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret), nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	log.Warn().Msg("JWT_SECRET not set, using a random secret; clients must sign in again after restart")
	return []byte(hex.EncodeToString(buf)), nil
}

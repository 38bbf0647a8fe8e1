// Package config handles application configuration from environment variables,
// an optional YAML file and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultDatabasePath         = "./data/console.db"
	DefaultLogLevel             = "info"
	DefaultHTTPTimeout          = 100 * time.Second
	DefaultResourcePollInterval = 2 * time.Second
	DefaultResourceWatchTTL     = 2 * time.Minute
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken     string
	BaseURL              string
	DatabasePath         string
	LogLevel             string
	AllowedUsers         []int64
	HTTPTimeout          time.Duration
	ResourcePollInterval time.Duration
	ResourceWatchTTL     time.Duration
	MetricsAddr          string
}

type fileConfig struct {
	TelegramBotToken     string  `yaml:"telegram_bot_token"`
	BaseURL              string  `yaml:"base_url"`
	DatabasePath         string  `yaml:"database_path"`
	LogLevel             string  `yaml:"log_level"`
	AllowedUsers         []int64 `yaml:"allowed_users"`
	HTTPTimeout          string  `yaml:"http_timeout"`
	ResourcePollInterval string  `yaml:"resource_poll_interval"`
	ResourceWatchTTL     string  `yaml:"resource_watch_ttl"`
	MetricsAddr          string  `yaml:"metrics_addr"`
}

// LoadDotEnv copies variables from a .env file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the YAML file named by CONFIG_FILE, if any, and then applies
// environment variables on top of it.
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := &Config{
		TelegramBotToken: envOr("TELEGRAM_BOT_TOKEN", fc.TelegramBotToken),
		BaseURL:          envOr("WERSS_BASE_URL", fc.BaseURL),
		DatabasePath:     envOr("DATABASE_PATH", fc.DatabasePath),
		LogLevel:         envOr("LOG_LEVEL", fc.LogLevel),
		AllowedUsers:     fc.AllowedUsers,
		MetricsAddr:      envOr("METRICS_ADDR", fc.MetricsAddr),
	}

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("WERSS_BASE_URL is required")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		users, err := parseUsers(raw)
		if err != nil {
			return nil, err
		}
		cfg.AllowedUsers = users
	}

	var err error
	if cfg.HTTPTimeout, err = durationOr("HTTP_TIMEOUT", fc.HTTPTimeout, DefaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.ResourcePollInterval, err = durationOr("RESOURCE_POLL_INTERVAL", fc.ResourcePollInterval, DefaultResourcePollInterval); err != nil {
		return nil, err
	}
	if cfg.ResourceWatchTTL, err = durationOr("RESOURCE_WATCH_TTL", fc.ResourceWatchTTL, DefaultResourceWatchTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key, fileValue string, def time.Duration) (time.Duration, error) {
	raw := envOr(key, fileValue)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func parseUsers(raw string) ([]int64, error) {
	var users []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		users = append(users, uid)
	}
	return users, nil
}

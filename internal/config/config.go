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

	"github.com/example/engprogress/internal/mastery"
)

// Config holds the service settings
type Config struct {
	// DBType is "sqlite" or "postgres"
	DBType string
	// DBPath is the sqlite database file
	DBPath string
	// DatabaseURL is the postgres DSN
	DatabaseURL string
	HTTPAddr    string
	LogMode     string
	// RedisAddr enables the cross-process user lock when set
	RedisAddr string
	// CommitTimeout bounds one session update including retries
	CommitTimeout time.Duration
	// ReplayInterval is how often failed session updates are retried
	ReplayInterval time.Duration
	// ReplayBatch is how many failed sessions one replay pass handles
	ReplayBatch int
	Policy      mastery.Policy
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		DBType:         "sqlite",
		DBPath:         "data/engprogress.db",
		HTTPAddr:       ":8080",
		LogMode:        "dev",
		CommitTimeout:  10 * time.Second,
		ReplayInterval: 5 * time.Minute,
		ReplayBatch:    50,
		Policy:         mastery.DefaultPolicy(),
	}
}

// Load reads .env when present, then the environment, then the optional policy file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if v := strings.ToLower(strings.TrimSpace(getenv("DB_TYPE"))); v != "" {
		if v != "sqlite" && v != "postgres" {
			return nil, fmt.Errorf("DB_TYPE must be sqlite or postgres, got %q", v)
		}
		cfg.DBType = v
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.DBType == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
	}
	if v := getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := getenv("LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	cfg.RedisAddr = strings.TrimSpace(getenv("REDIS_ADDR"))

	var err error
	if cfg.CommitTimeout, err = durationEnv(getenv, "COMMIT_TIMEOUT", cfg.CommitTimeout); err != nil {
		return nil, err
	}
	if cfg.ReplayInterval, err = durationEnv(getenv, "REPLAY_INTERVAL", cfg.ReplayInterval); err != nil {
		return nil, err
	}
	if v := getenv("REPLAY_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("REPLAY_BATCH must be a positive integer, got %q", v)
		}
		cfg.ReplayBatch = n
	}

	if path := getenv("POLICY_FILE"); path != "" {
		policy, err := LoadPolicy(path, cfg.Policy)
		if err != nil {
			return nil, err
		}
		cfg.Policy = policy
	}
	return cfg, nil
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBType == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// LoadPolicy overlays the YAML file at path onto base and validates the result
func LoadPolicy(path string, base mastery.Policy) (mastery.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read policy file: %w", err)
	}
	policy := base
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return base, fmt.Errorf("parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return base, fmt.Errorf("invalid policy in %s: %w", path, err)
	}
	return policy, nil
}

func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

// Package config loads nfgraph's runtime configuration from environment
// variables.
//
// nfgraph has no server process and no compliance surface of its own —
// it is an embeddable query engine — so configuration is limited to a
// few knobs: where the SQLite file lives, a per-query timeout, how
// verbose logging is, and a plan-cache size. The CLI applies the path
// and the logging settings; the timeout and cache size are loaded and
// validated, but no Execute call or plan cache is configured from them.
//
// Example usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all nfgraph configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Cache    CacheConfig
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	// Path is the SQLite file path, or ":memory:" for an ephemeral database.
	Path string
	// QueryTimeout is the configured per-query time limit. The CLI does
	// not apply it: its Execute calls run under context.Background().
	QueryTimeout time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Format is "json" or "text".
	Format string
}

// CacheConfig holds plan-cache settings.
type CacheConfig struct {
	// Size is the configured maximum number of cached query plans.
	// engine.New does not take it; the engine's plan cache holds 256.
	Size int
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset:
//
//	NFGRAPH_DB_PATH       - SQLite file path (default ":memory:")
//	NFGRAPH_QUERY_TIMEOUT - Go duration string (default "30s")
//	NFGRAPH_LOG_LEVEL     - debug|info|warn|error (default "info")
//	NFGRAPH_LOG_FORMAT    - json|text (default "text")
//	NFGRAPH_CACHE_SIZE    - max cached plans (default 256)
func LoadFromEnv() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         getEnv("NFGRAPH_DB_PATH", ":memory:"),
			QueryTimeout: getEnvDuration("NFGRAPH_QUERY_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("NFGRAPH_LOG_LEVEL", "info")),
			Format: getEnv("NFGRAPH_LOG_FORMAT", "text"),
		},
		Cache: CacheConfig{
			Size: getEnvInt("NFGRAPH_CACHE_SIZE", 256),
		},
	}
}

// fileOverrides mirrors the subset of Config a YAML file may override,
// keyed the way a hand-written nfgraph.yaml reads most naturally.
type fileOverrides struct {
	DBPath       string `yaml:"db_path"`
	QueryTimeout string `yaml:"query_timeout"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	CacheSize    *int   `yaml:"cache_size"`
}

// LoadFromFile layers a YAML config file's overrides on top of env-loaded
// defaults. A missing path (as opposed to an unreadable one) is not an
// error — it just means there was nothing to override.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if overrides.DBPath != "" {
		cfg.Database.Path = overrides.DBPath
	}
	if overrides.QueryTimeout != "" {
		if d, err := time.ParseDuration(overrides.QueryTimeout); err == nil {
			cfg.Database.QueryTimeout = d
		}
	}
	if overrides.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(overrides.LogLevel)
	}
	if overrides.LogFormat != "" {
		cfg.Logging.Format = overrides.LogFormat
	}
	if overrides.CacheSize != nil {
		cfg.Cache.Size = *overrides.CacheSize
	}

	return cfg, nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("NFGRAPH_DB_PATH must not be empty")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("NFGRAPH_QUERY_TIMEOUT must be positive, got %s", c.Database.QueryTimeout)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid NFGRAPH_LOG_LEVEL: %s", c.Logging.Level)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("NFGRAPH_CACHE_SIZE must not be negative, got %d", c.Cache.Size)
	}
	return nil
}

// String returns a representation safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, Timeout: %s, LogLevel: %s, CacheSize: %d}",
		c.Database.Path, c.Database.QueryTimeout, c.Logging.Level, c.Cache.Size)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

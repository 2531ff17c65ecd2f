// ./internal/config/config.go

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DOCQUERY_"

// Config holds application-wide configuration.
type Config struct {
	Port             string            `env:"PORT"`
	DataDir          string            `env:"DATA_DIR"`
	ShutdownTimeout  time.Duration     `env:"SHUTDOWN_TIMEOUT"`
	SnapshotInterval time.Duration     `env:"SNAPSHOT_INTERVAL"`
	EnableSnapshots  bool              `env:"ENABLE_SNAPSHOTS"`
	TtlCleanInterval time.Duration     `env:"TTL_CLEAN_INTERVAL"`
	NumShards        int               `env:"NUM_SHARDS"`
	PersistWorkers   int               `env:"PERSIST_WORKERS"`
	LogLevel         string            `env:"LOG_LEVEL"`
	FilterAllowlist  map[string]string `env:"FILTER_ALLOWLIST" envSeparator:";" envKeyValSeparator:":"`
}

// NewDefaultConfig creates a Config struct with sensible default values.
func NewDefaultConfig() Config {
	return Config{
		Port:             ":8080",
		DataDir:          "data",
		ShutdownTimeout:  10 * time.Second,
		SnapshotInterval: 5 * time.Minute,
		EnableSnapshots:  true,
		TtlCleanInterval: 1 * time.Minute,
		NumShards:        16,
		PersistWorkers:   4,
		LogLevel:         "info",
	}
}

// LoadConfig loads configuration with a clear precedence:
// Environment > .env files > Defaults. With no files given, ".env" in the
// working directory is tried.
func LoadConfig(envFiles ...string) Config {
	slog.Info("Loading configuration...")
	if err := godotenv.Load(envFiles...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No .env file found, using process environment only")
		} else {
			slog.Warn("Could not load .env file", "error", err)
		}
	}

	cfg := NewDefaultConfig()
	applyEnvConfig(&cfg)
	return cfg
}

// applyEnvConfig overrides config values from environment variables.
// Variables that fail to parse leave the default in place.
func applyEnvConfig(cfg *Config) {
	defaults := *cfg
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		var agg env.AggregateError
		if errors.As(err, &agg) {
			for _, e := range agg.Errors {
				slog.Warn("Invalid environment value, using default", "error", e)
			}
		} else {
			slog.Warn("Could not parse environment, using defaults", "error", err)
			*cfg = defaults
			return
		}
	}

	if cfg.NumShards <= 0 {
		slog.Warn("Invalid shard count, using default", "value", cfg.NumShards)
		cfg.NumShards = defaults.NumShards
	}
	if cfg.PersistWorkers <= 0 {
		slog.Warn("Invalid persistence worker count, using default", "value", cfg.PersistWorkers)
		cfg.PersistWorkers = defaults.PersistWorkers
	}
	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		slog.Warn("Invalid log level, using default", "value", cfg.LogLevel)
		cfg.LogLevel = defaults.LogLevel
	}
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}

// AllowedFilters returns, per collection, the fields that may be filtered
// on. The raw form is "collection:field|field;other:field". A collection
// with no entry accepts any field.
func (c Config) AllowedFilters() map[string][]string {
	if len(c.FilterAllowlist) == 0 {
		return nil
	}
	out := make(map[string][]string, len(c.FilterAllowlist))
	for collection, raw := range c.FilterAllowlist {
		collection = strings.TrimSpace(collection)
		if collection == "" {
			continue
		}
		var fields []string
		for _, f := range strings.Split(raw, "|") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		out[collection] = fields
	}
	return out
}

// Package config loads the engine configuration from resourcehooks.yaml and the environment
package config

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/resourcehooks/internal/orm/hooks"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// RESOURCEHOOKS_HOOKS_LOAD_DATABASE_VALUES
const EnvPrefix = "RESOURCEHOOKS"

// Config represents the engine configuration
type Config struct {
	Hooks    HooksConfig    `mapstructure:"hooks"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
}

// HooksConfig represents hook execution configuration
type HooksConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	LoadDatabaseValues bool `mapstructure:"load_database_values"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// Load loads the configuration from path, or from resourcehooks.yaml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := hooks.DefaultOptions()
	v.SetDefault("hooks.enabled", defaults.Enabled)
	v.SetDefault("hooks.load_database_values", defaults.LoadDatabaseValues)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("database.url", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("resourcehooks")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ExecutorOptions returns the hook engine options
func (c *Config) ExecutorOptions() hooks.Options {
	return hooks.Options{
		Enabled:            c.Hooks.Enabled,
		LoadDatabaseValues: c.Hooks.LoadDatabaseValues,
	}
}

// Logger builds the configured logger
func (c *Config) Logger() (*zap.Logger, error) {
	return NewLogger(c.Log.Level, c.Log.Development)
}

// OpenDatabase opens the configured PostgreSQL database
func (c *Config) OpenDatabase() (*sql.DB, error) {
	if c.Database.URL == "" {
		return nil, fmt.Errorf("database.url is not set")
	}
	dsn, err := pq.ParseURL(c.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database.url: %w", err)
	}
	return sql.Open("postgres", dsn)
}

// NewLogger builds a zap logger at the given level. Development loggers are human
// readable; production loggers write JSON.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

func parseLevel(level string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}
	if cfg.Database.URL != "" {
		if _, err := pq.ParseURL(cfg.Database.URL); err != nil {
			return fmt.Errorf("database.url must be a postgres:// URL: %w", err)
		}
	}
	return nil
}

// Package config handles configuration loading for the library's bootstrap.
//
// Configuration is loaded in the following order (later sources override
// earlier ones):
//  1. Default values
//  2. Configuration files (./config.yaml, ./configs/config.yaml,
//     ~/.graphom/config.yaml, /etc/graphom/config.yaml)
//  3. .env files
//  4. Environment variables (prefix GRAPHOM_)
//
// Environment variables use underscores for nested keys:
//   - GRAPHOM_STORE_URI=bolt://localhost:7687
//   - GRAPHOM_EVENTS_REDIS_URL=redis://localhost:6379
//   - GRAPHOM_LOGGING_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the default environment variable prefix.
const EnvPrefix = "GRAPHOM"

// StoreConfig contains graph store connection settings.
type StoreConfig struct {
	// URI is the store's bolt/neo4j URI (e.g., bolt://localhost:7687)
	URI string `mapstructure:"uri"`

	// Username for store authentication
	Username string `mapstructure:"username"`

	// Password for store authentication
	Password string `mapstructure:"password"`

	// Database is the database name; empty selects the server default
	Database string `mapstructure:"database"`
}

// EventsConfig contains the event sink settings. A sink is enabled by
// giving it a URL; both sinks may be enabled at once.
type EventsConfig struct {
	// RedisURL enables the Redis pub/sub sink when non-empty
	RedisURL string `mapstructure:"redis_url"`

	// RedisChannel is the pub/sub channel for the Redis sink
	RedisChannel string `mapstructure:"redis_channel"`

	// AMQPURL enables the AMQP sink when non-empty
	AMQPURL string `mapstructure:"amqp_url"`

	// AMQPQueue is the durable queue for the AMQP sink
	AMQPQueue string `mapstructure:"amqp_queue"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format"`
}

// Config is the top-level configuration for a session bootstrap.
type Config struct {
	// Store contains graph store connection settings
	Store StoreConfig `mapstructure:"store"`

	// Events contains event sink settings
	Events EventsConfig `mapstructure:"events"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging"`
}

// Loader provides configuration loading functionality.
type Loader struct {
	v      *viper.Viper
	prefix string
}

// NewLoader creates a new configuration loader with the given environment
// prefix.
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		v:      viper.New(),
		prefix: envPrefix,
	}
}

// SetDefaults sets default configuration values. Call before Load.
func (l *Loader) SetDefaults(defaults map[string]interface{}) {
	for key, value := range defaults {
		l.v.SetDefault(key, value)
	}
}

// SetConfigDefaults sets the library's standard defaults.
func (l *Loader) SetConfigDefaults() {
	l.v.SetDefault("store.uri", "bolt://localhost:7687")
	l.v.SetDefault("store.username", "neo4j")
	l.v.SetDefault("store.password", "")
	l.v.SetDefault("store.database", "")

	l.v.SetDefault("events.redis_url", "")
	l.v.SetDefault("events.redis_channel", "graphom.events")
	l.v.SetDefault("events.amqp_url", "")
	l.v.SetDefault("events.amqp_queue", "graphom.events")

	l.v.SetDefault("logging.level", "info")
	l.v.SetDefault("logging.format", "text")
}

// Load reads configuration from file, .env, and environment variables.
// If cfgFile is empty, searches for config.yaml in standard locations.
func (l *Loader) Load(cfgFile string, target interface{}) error {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./configs")
		l.v.AddConfigPath("$HOME/.graphom")
		l.v.AddConfigPath("/etc/graphom")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if cfgFile != "" && !isFileNotFoundError(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		if cfgFile == "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Merge .env file if present
	l.v.SetConfigFile(".env")
	l.v.SetConfigType("env")
	_ = l.v.MergeInConfig()

	if l.prefix != "" {
		l.v.SetEnvPrefix(l.prefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}

// LoadConfig loads and validates configuration with standard defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	loader := NewLoader(EnvPrefix)
	loader.SetConfigDefaults()

	cfg := &Config{}
	if err := loader.Load(cfgFile, cfg); err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ValidateConfig validates the loaded configuration.
func ValidateConfig(cfg *Config) error {
	if cfg.Store.URI == "" {
		return fmt.Errorf("store uri is required")
	}
	if cfg.Events.RedisURL != "" && cfg.Events.RedisChannel == "" {
		return fmt.Errorf("events redis_channel is required when redis_url is set")
	}
	if cfg.Events.AMQPURL != "" && cfg.Events.AMQPQueue == "" {
		return fmt.Errorf("events amqp_queue is required when amqp_url is set")
	}
	return nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}

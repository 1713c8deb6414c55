// Package config implements layered configuration for formscout: a base
// config.toml, an optional environment overlay, environment variable
// overrides, and a finalize pass of defaults plus validation.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvFormscoutEnv   = "FORMSCOUT_ENV"
	EnvDeadline       = "FORMSCOUT_DEADLINE"
	EnvVersion        = "FORMSCOUT_VERSION"
	EnvOracleProvider = "FORMSCOUT_ORACLE_PROVIDER"
	EnvOracleModel    = "FORMSCOUT_ORACLE_MODEL"
	EnvOracleBaseURL  = "FORMSCOUT_ORACLE_BASE_URL"
	EnvOracleAPIKey   = "FORMSCOUT_ORACLE_API_KEY"
)

// Config is the root configuration for formscout.
type Config struct {
	Engine  EngineConfig `toml:"engine"`
	Oracle  OracleConfig `toml:"oracle"`
	Version string       `toml:"version"`
}

// Env returns the FORMSCOUT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvFormscoutEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads the base config from path (if present), applies any environment
// overlay next to it, and finalizes all values. A missing config file is not
// an error: defaults and environment variables provide all configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = BaseConfigFile
	}

	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(); overlay != "" {
		loaded, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(loaded)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Engine.Merge(&overlay.Engine)
	c.Oracle.Merge(&overlay.Oracle)
}

func (c *Config) finalize() error {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := getenv(EnvVersion); v != "" {
		c.Version = v
	}

	if err := c.Engine.Finalize(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Oracle.Finalize(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvFormscoutEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func getenv(key string) string {
	return os.Getenv(key)
}

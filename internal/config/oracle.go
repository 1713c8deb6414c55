package config

import (
	"fmt"
	"os"
	"slices"
	"time"
)

// Oracle providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var providers = []string{ProviderGemini, ProviderOpenAI}

// OracleConfig selects and configures the classification oracle adapter.
// The API key is never stored in config files; APIKeyEnv names the
// environment variable it is read from.
type OracleConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
	Timeout   string `toml:"timeout"`
}

// Merge overwrites non-zero fields from overlay.
func (c *OracleConfig) Merge(overlay *OracleConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKeyEnv != "" {
		c.APIKeyEnv = overlay.APIKeyEnv
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *OracleConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// APIKey resolves the API key from the configured environment variable.
func (c *OracleConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *OracleConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *OracleConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = EnvOracleAPIKey
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

func (c *OracleConfig) loadEnv() {
	if v := getenv(EnvOracleProvider); v != "" {
		c.Provider = v
	}
	if v := getenv(EnvOracleModel); v != "" {
		c.Model = v
	}
	if v := getenv(EnvOracleBaseURL); v != "" {
		c.BaseURL = v
	}
}

func (c *OracleConfig) validate() error {
	if !slices.Contains(providers, c.Provider) {
		return fmt.Errorf("unknown oracle provider %q", c.Provider)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid oracle timeout: %w", err)
	}
	return nil
}

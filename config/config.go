// Package config loads CLI and tooling settings from the environment.
// Library consumers construct the client directly; this package serves
// the bundled commands.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all tooling configuration.
type Config struct {
	// Env names the target environment: production or demo.
	Env  string `mapstructure:"env"`
	Auth AuthConfig
	HTTP HTTPConfig
	Rate RateConfig
}

// AuthConfig holds API credential settings.
type AuthConfig struct {
	APIKeyID       string `mapstructure:"api_key_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
}

// HTTPConfig holds request pipeline settings.
type HTTPConfig struct {
	// BaseURL overrides the environment-derived API host when set.
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// Timeout returns the per-request timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSec) * time.Second
}

// RateConfig holds client-side rate limiter settings. Zero RPS disables
// local limiting and relies on server headers alone.
type RateConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Demo reports whether the demo environment is targeted.
func (c *Config) Demo() bool {
	return c.Env == "demo"
}

// Load reads configuration from environment variables prefixed with
// KALSHI_. A .env file in the working directory is loaded first when
// present; real environment variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("KALSHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "production")

	v.SetDefault("http.timeout_sec", 10)
	v.SetDefault("http.max_retries", 3)

	v.SetDefault("rate.rps", 10.0)
	v.SetDefault("rate.burst", 20)

	cfg := &Config{}

	cfg.Env = v.GetString("env")

	// Credential keys are deliberately flat so they match the variables
	// the client library itself reads: KALSHI_API_KEY_ID and
	// KALSHI_PRIVATE_KEY_PATH.
	cfg.Auth = AuthConfig{
		APIKeyID:       v.GetString("api_key_id"),
		PrivateKeyPath: v.GetString("private_key_path"),
	}

	cfg.HTTP = HTTPConfig{
		BaseURL:    v.GetString("http.base_url"),
		TimeoutSec: v.GetInt("http.timeout_sec"),
		MaxRetries: v.GetInt("http.max_retries"),
	}

	cfg.Rate = RateConfig{
		RPS:   v.GetFloat64("rate.rps"),
		Burst: v.GetInt("rate.burst"),
	}

	return cfg, nil
}

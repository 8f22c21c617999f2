// Package config loads storyteller settings from the process environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Yates-Labs/storyteller/internal/completion"
)

// ErrMissingCredential is returned when no completion service credential is configured.
var ErrMissingCredential = errors.New("OPENAI_API_KEY environment variable is required")

// Config is the root configuration.
type Config struct {
	Env    string       `mapstructure:"env"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// OpenAIConfig configures the completion client.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the web host.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"env":                     "STORYTELLER_ENV",
	"openai.api_key":          "OPENAI_API_KEY",
	"openai.base_url":         "OPENAI_BASE_URL",
	"openai.model":            "STORYTELLER_MODEL",
	"openai.timeout":          "STORYTELLER_TIMEOUT",
	"server.addr":             "STORYTELLER_ADDR",
	"server.read_timeout":     "STORYTELLER_READ_TIMEOUT",
	"server.shutdown_timeout": "STORYTELLER_SHUTDOWN_TIMEOUT",
	"log.level":               "STORYTELLER_LOG_LEVEL",
	"log.format":              "STORYTELLER_LOG_FORMAT",
}

// Load reads envFiles (".env" when none are given) into the environment
// without overriding variables that are already set, then builds the
// configuration. A missing credential yields an error wrapping
// ErrMissingCredential.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings required before any request is accepted.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("configuration error: %w", ErrMissingCredential)
	}
	return nil
}

// Completion returns the completion client settings.
func (c *Config) Completion() completion.Config {
	return completion.Config{
		APIKey:  c.OpenAI.APIKey,
		Model:   c.OpenAI.Model,
		BaseURL: c.OpenAI.BaseURL,
		Timeout: c.OpenAI.Timeout,
	}
}

// IsProduction reports whether the process runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", completion.DefaultModel)
	v.SetDefault("openai.timeout", "0s")

	v.SetDefault("server.addr", ":7860")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Package config loads the server configuration from a YAML file, applying
// defaults for anything the file leaves out.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig configures the chat completions client.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxPerMinute   int     `yaml:"max_per_minute"`
	// APIKeyEnv names the environment variable holding the key. The key
	// itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env"`
}

// Config is the full server configuration.
type Config struct {
	Port        int       `yaml:"port"`
	DBPath      string    `yaml:"db_path"`
	MaxSteps    int       `yaml:"max_steps"`
	UseDirector bool      `yaml:"use_director"`
	Seed        int64     `yaml:"seed"`
	LLM         LLMConfig `yaml:"llm"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Port:        8000,
		DBPath:      "data/storytown.db",
		MaxSteps:    30,
		UseDirector: true,
		LLM: LLMConfig{
			BaseURL:        "https://api.moonshot.cn/v1",
			Model:          "kimi-k2-turbo-preview",
			Temperature:    0.7,
			MaxTokens:      4096,
			TimeoutSeconds: 60,
			MaxPerMinute:   20,
			APIKeyEnv:      "STORYTOWN_LLM_KEY",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

// APIKey resolves the LLM API key from the configured environment variable.
func (c Config) APIKey() string {
	env := c.LLM.APIKeyEnv
	if env == "" {
		env = "STORYTOWN_LLM_KEY"
	}
	return os.Getenv(env)
}

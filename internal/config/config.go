// Package config provides configuration for dirigent.
// Configuration is loaded from .dirigent/config.json with env-var overrides
// for API keys. Every section has a Default* constructor and a Validate
// method; validation failures are construction-time fatal, not call-time.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration.
type Config struct {
	Providers   ProviderConfig    `json:"providers"`
	Scoring     ScoringWeights    `json:"scoring"`
	TokenBudget TokenBudgetConfig `json:"token_budget"`
	Performance PerformanceConfig `json:"performance"`
	Logging     LoggingConfig     `json:"logging"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	DebugMode bool   `json:"debug_mode"`
	Level     string `json:"level"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Providers:   DefaultProviderConfig(),
		Scoring:     DefaultScoringWeights(),
		TokenBudget: DefaultTokenBudgetConfig(),
		Performance: DefaultPerformanceConfig(),
		Logging:     LoggingConfig{Level: "info"},
	}
}

// Validate checks every section. The first failing section wins.
func (c *Config) Validate() error {
	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.TokenBudget.Validate(); err != nil {
		return fmt.Errorf("token_budget: %w", err)
	}
	if err := c.Performance.Validate(); err != nil {
		return fmt.Errorf("performance: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default path to .dirigent/config.json
// in the current working directory.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".dirigent", "config.json")
	}
	return filepath.Join(cwd, ".dirigent", "config.json")
}

// Load reads configuration from the given path. A missing file returns
// defaults; a malformed or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"
)

// Provider kinds understood by the factory.
const (
	KindRemoteAPI      = "remote-api"
	KindGemini         = "gemini"
	KindLocalInference = "local-inference"
	KindRuleBased      = "rule-based"
)

// ProviderSpec describes one configured model provider.
type ProviderSpec struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	// Endpoint is the base URL for remote-api and local-inference kinds.
	Endpoint string `json:"endpoint,omitempty"`

	// Model overrides the provider default model.
	Model string `json:"model,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	// Checked before APIKey so keys stay out of config files.
	APIKeyEnv string `json:"api_key_env,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
}

// ResolveAPIKey returns the API key, preferring the environment variable.
func (s ProviderSpec) ResolveAPIKey() string {
	if s.APIKeyEnv != "" {
		if key := os.Getenv(s.APIKeyEnv); key != "" {
			return key
		}
	}
	return s.APIKey
}

// Validate checks the provider kind and required fields.
func (s ProviderSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("provider name required")
	}
	switch s.Kind {
	case KindRemoteAPI, KindGemini, KindLocalInference, KindRuleBased:
		return nil
	default:
		return fmt.Errorf("unknown provider kind: %s (valid: %s, %s, %s, %s)",
			s.Kind, KindRemoteAPI, KindGemini, KindLocalInference, KindRuleBased)
	}
}

// ProviderConfig configures the provider manager.
//
// In Go the shortest timeout in a chain wins: the per-call context wraps
// the HTTP client, so TimeoutMs is the effective bound on every provider
// attempt regardless of client settings.
type ProviderConfig struct {
	// Primary is the preferred provider name; empty means no primary.
	Primary string `json:"primary,omitempty"`

	// Fallbacks are tried in order after the primary.
	Fallbacks []string `json:"fallbacks,omitempty"`

	// Specs declares every provider the manager may construct.
	Specs []ProviderSpec `json:"specs,omitempty"`

	// TimeoutMs bounds each individual provider call.
	TimeoutMs int `json:"timeout_ms"`

	// HealthCheckIntervalSec is the background probe cadence.
	HealthCheckIntervalSec int `json:"health_check_interval_sec"`

	// MaxRetries is reserved for per-provider retry policies.
	MaxRetries int `json:"max_retries"`
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		TimeoutMs:              5000,
		HealthCheckIntervalSec: 60,
		MaxRetries:             0,
	}
}

// Timeout returns the per-call timeout as a duration.
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// HealthCheckInterval returns the probe cadence as a duration.
func (c ProviderConfig) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalSec) * time.Second
}

// Validate checks timeouts and every declared spec.
func (c ProviderConfig) Validate() error {
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeout_ms must be > 0, got %d", c.TimeoutMs)
	}
	if c.HealthCheckIntervalSec <= 0 {
		return fmt.Errorf("health_check_interval_sec must be > 0, got %d", c.HealthCheckIntervalSec)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}

	names := make(map[string]bool, len(c.Specs))
	for _, spec := range c.Specs {
		if err := spec.Validate(); err != nil {
			return err
		}
		if names[spec.Name] {
			return fmt.Errorf("duplicate provider name: %s", spec.Name)
		}
		names[spec.Name] = true
	}

	if c.Primary != "" && !names[c.Primary] {
		return fmt.Errorf("primary provider %q not declared in specs", c.Primary)
	}
	for _, fb := range c.Fallbacks {
		if !names[fb] {
			return fmt.Errorf("fallback provider %q not declared in specs", fb)
		}
	}
	return nil
}

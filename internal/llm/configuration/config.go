// Package configuration holds the settings of the oracle client: which
// provider and model to call, and how the resilience middleware behaves.
package configuration

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/cache"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/ratelimit"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/retry"
)

var (
	errProviderRequired = errors.New("provider is required")
	errModelRequired    = errors.New("model is required")
	errTimeoutInvalid   = errors.New("timeout must be >= 0")
	errTemperature      = errors.New("temperature must be between 0 and 2")
)

// Config holds the oracle client configuration.
type Config struct {
	// Provider selects the backend. Only "gemini" is built in.
	Provider string `yaml:"provider" json:"provider"`

	// Model is the provider model identifier.
	Model string `yaml:"model" json:"model"`

	// APIKey authenticates with the provider. It is never serialized; set it
	// through APIKeyEnv or the environment.
	APIKey string `yaml:"-" json:"-"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// Temperature is the sampling temperature for every call.
	Temperature float32 `yaml:"temperature" json:"temperature"`

	// Timeout bounds one provider round trip. Zero leaves calls bounded only
	// by the caller's context.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Retry applies to transient transport failures only. Grading call sites
	// add their own fallbacks on top.
	Retry retry.Policy `yaml:"retry" json:"retry"`

	// RateLimit paces calls to the provider.
	RateLimit ratelimit.Config `yaml:"rate_limit" json:"rate_limit"`

	// Cache stores responses to identical prompts in Redis.
	Cache cache.Config `yaml:"cache" json:"cache"`
}

// Validate reports configuration errors. A missing API key is not checked
// here; the provider constructor reports it as a credential error.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return errProviderRequired
	}
	if c.Model == "" {
		return errModelRequired
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w, got %v", errTimeoutInvalid, c.Timeout)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w, got %v", errTemperature, c.Temperature)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

package configuration

import (
	"time"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/cache"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/ratelimit"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/retry"
)

// Provider defaults.
const (
	DefaultProvider    = "gemini"
	DefaultModel       = "gemini-2.0-flash"
	DefaultAPIKeyEnv   = "GEMINI_API_KEY"
	DefaultTemperature = 0.2
	DefaultTimeout     = 90 * time.Second
)

// Transport retry defaults. Transient failures get a short second chance.
const (
	DefaultMaxAttempts   = 2
	DefaultBaseDelay     = time.Second
	DefaultBackoffFactor = 2.0
	DefaultMaxDelay      = 30 * time.Second
)

// Rate limiting defaults.
const (
	DefaultRequestsPerSecond = 1.0
	DefaultBurstSize         = 4
	DefaultMaxWait           = 2 * time.Minute
)

// Cache defaults.
const (
	DefaultCacheTTL         = 24 * time.Hour
	DefaultCacheMaxAgeRatio = 7 // MaxAge = 7x TTL for staleness protection
	DefaultRedisAddr        = "localhost:6379"
)

// DefaultConfig returns a configuration suitable for a single grading
// process. Caching is off until a Redis address is configured.
func DefaultConfig() *Config {
	return &Config{
		Provider:    DefaultProvider,
		Model:       DefaultModel,
		APIKeyEnv:   DefaultAPIKeyEnv,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
		Retry: retry.Policy{
			MaxAttempts:   DefaultMaxAttempts,
			BaseDelay:     DefaultBaseDelay,
			BackoffFactor: DefaultBackoffFactor,
			MaxDelay:      DefaultMaxDelay,
		},
		RateLimit: ratelimit.Config{
			Enabled:           true,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurstSize,
			MaxWait:           DefaultMaxWait,
		},
		Cache: cache.Config{
			Enabled:   false,
			TTL:       DefaultCacheTTL,
			MaxAge:    DefaultCacheTTL * DefaultCacheMaxAgeRatio,
			RedisAddr: DefaultRedisAddr,
		},
	}
}

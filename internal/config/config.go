// Package config loads the examiner's process configuration: oracle
// settings, grading limits, persistence, the HTTP server, the Temporal
// connection and logging.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/evaluation"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/grading"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/configuration"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/worker"
)

// Environment variables read by Load.
const (
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvGoogleAPIKey  = "GOOGLE_API_KEY"
	EnvRedisAddr     = "EXAMINER_REDIS_ADDR"
	EnvRedisPassword = "EXAMINER_REDIS_PASSWORD"
	EnvStorePath     = "EXAMINER_STORE_PATH"
	EnvTemporalHost  = "TEMPORAL_HOSTPORT"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full process configuration.
type Config struct {
	Oracle   configuration.Config `yaml:"oracle"`
	Grading  GradingConfig        `yaml:"grading"`
	Store    StoreConfig          `yaml:"store"`
	Server   ServerConfig         `yaml:"server"`
	Temporal TemporalConfig       `yaml:"temporal"`
	Logging  LoggingConfig        `yaml:"logging"`
}

// GradingConfig bounds one evaluation.
type GradingConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// Pause follows every oracle call.
	Pause time.Duration `yaml:"pause" validate:"gte=0"`
}

// StoreConfig selects where evaluation records live.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=memory sqlite"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	BodyLimit       int           `yaml:"body_limit" validate:"gt=0"` // bytes
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// TemporalConfig configures the workflow client and worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" validate:"required"`
	Namespace string `yaml:"namespace" validate:"required"`
	TaskQueue string `yaml:"task_queue" validate:"required"`
}

// LoggingConfig configures the default slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Oracle: *configuration.DefaultConfig(),
		Grading: GradingConfig{
			Timeout: grading.DefaultTimeout,
			Pause:   evaluation.DefaultPause,
		},
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   filepath.Join("data", "examiner.db"),
		},
		Server: ServerConfig{
			Addr:            ":8080",
			BodyLimit:       16 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: worker.DefaultTaskQueue,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. A missing file yields the defaults. A .env file in the working
// directory is loaded first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if c.Oracle.APIKeyEnv != "" {
		if key := os.Getenv(c.Oracle.APIKeyEnv); key != "" {
			c.Oracle.APIKey = key
		}
	}
	if c.Oracle.APIKey == "" {
		if key := os.Getenv(EnvGeminiAPIKey); key != "" {
			c.Oracle.APIKey = key
		} else if key := os.Getenv(EnvGoogleAPIKey); key != "" {
			c.Oracle.APIKey = key
		}
	}

	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.Oracle.Cache.RedisAddr = addr
		c.Oracle.Cache.Enabled = true
	}
	if pw := os.Getenv(EnvRedisPassword); pw != "" {
		c.Oracle.Cache.RedisPassword = pw
	}
	if path := os.Getenv(EnvStorePath); path != "" {
		c.Store.Path = path
	}
	if hp := os.Getenv(EnvTemporalHost); hp != "" {
		c.Temporal.HostPort = hp
	}
}

// Validate reports the first configuration error. The API key is left to
// the oracle constructor, so commands that never call the oracle still run
// without one.
func (c *Config) Validate() error {
	if err := c.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// NewLogger builds a slog logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.level()}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l LoggingConfig) level() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

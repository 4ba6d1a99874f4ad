// Package cache provides Redis-based caching middleware for oracle responses.
// Identical prompts (same operation, model, instructions and content) are
// answered from Redis. Redis failures degrade gracefully to uncached calls.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

const (
	// Redis connection defaults.
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second
)

// Config controls response caching.
type Config struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	MaxAge        time.Duration `yaml:"max_age" json:"max_age"` // Entries older than this are ignored. Zero disables the check.
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"-" json:"-"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
}

// entry is the stored form of a cached response.
type entry struct {
	Response   transport.Response `json:"response"`
	StoredAtMs int64              `json:"stored_at_ms"`
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Cache implements Redis-based caching for oracle responses.
// All operations are thread-safe.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	maxAge  time.Duration
	enabled bool
	now     func() time.Time

	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New creates a response cache. If client is nil and caching is enabled, a
// client is created from cfg. A failed connection check disables caching.
func New(ctx context.Context, cfg Config, client *redis.Client) *Cache {
	logger := slog.Default().With("component", "cache")
	if cfg.Enabled && client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: defaultPoolSize,
		})

		timeoutCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()

		if err := client.Ping(timeoutCtx).Err(); err != nil {
			logger.Warn("Redis connection failed, cache disabled", "addr", cfg.RedisAddr, "error", err)
			_ = client.Close()
			client = nil
			cfg.Enabled = false
		}
	}

	return &Cache{
		client:  client,
		ttl:     cfg.TTL,
		maxAge:  cfg.MaxAge,
		enabled: cfg.Enabled && client != nil,
		now:     time.Now,
		logger:  logger,
	}
}

// Enabled reports whether responses are being cached.
func (c *Cache) Enabled() bool { return c.enabled }

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Middleware returns the caching middleware. Requests without a CacheKey
// bypass the cache; requests with CacheRefresh skip the lookup only.
func (c *Cache) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !c.enabled || req.CacheKey == "" {
				return next.Handle(ctx, req)
			}

			key := transport.CacheKey(req.Operation, req.CacheKey)
			if !req.CacheRefresh {
				cached, err := c.get(ctx, key)
				switch {
				case err == nil:
					c.hits.Add(1)
					c.logger.Debug("cache hit", "key", key, "operation", req.Operation)
					return cached, nil
				case errors.Is(err, llmerrors.ErrCacheMiss):
					c.misses.Add(1)
				default:
					c.misses.Add(1)
					c.errors.Add(1)
					c.logger.Warn("cache read failed", "key", key, "error", err)
				}
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}
			// Blank responses are never stored.
			if strings.TrimSpace(resp.Content) == "" {
				return resp, nil
			}
			if err := c.set(ctx, key, resp); err != nil {
				c.errors.Add(1)
				c.logger.Warn("cache write failed", "key", key, "error", err)
			}
			return resp, nil
		})
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errors.Load()}
}

func (c *Cache) get(ctx context.Context, key string) (*transport.Response, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, llmerrors.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return c.decode(raw)
}

func (c *Cache) set(ctx context.Context, key string, resp *transport.Response) error {
	raw, err := c.encode(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *Cache) encode(resp *transport.Response) ([]byte, error) {
	raw, err := json.Marshal(entry{Response: *resp, StoredAtMs: c.now().UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return raw, nil
}

// decode parses a stored entry. Corrupt, stale or future-dated entries are
// reported as misses.
func (c *Cache) decode(raw []byte) (*transport.Response, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, llmerrors.ErrCacheMiss
	}
	if c.maxAge > 0 {
		age := c.now().UnixMilli() - e.StoredAtMs
		if age < 0 || age > c.maxAge.Milliseconds() {
			return nil, llmerrors.ErrCacheMiss
		}
	}
	resp := e.Response
	resp.Cached = true
	return &resp, nil
}

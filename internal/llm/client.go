// Package llm provides the oracle used by every grading stage: a prompt goes
// in, text comes out.
//
// Calls flow through a middleware chain around the provider handler:
//
//	logging -> cache -> retry -> rate limit -> provider
//
// Logging and caching apply once per logical call. Rate limiting applies to
// every attempt the retry middleware makes. Redis failures degrade to
// uncached calls.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/cache"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/configuration"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/providers"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/ratelimit"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/retry"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// Oracle is the external text-completion capability. Implementations must
// be safe for concurrent use.
type Oracle interface {
	Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error)
}

// Stats is a snapshot of the client's middleware counters.
type Stats struct {
	Retry     retry.Stats     `json:"retry"`
	RateLimit ratelimit.Stats `json:"rate_limit"`
	Cache     cache.Stats     `json:"cache"`
}

// Client is the production Oracle.
type Client struct {
	cfg     *configuration.Config
	handler transport.Handler

	retrier *retry.Retrier
	limiter *ratelimit.Limiter
	cache   *cache.Cache
}

var _ Oracle = (*Client)(nil)

// NewClient builds a Client for cfg. A nil cfg uses the defaults. It fails
// with errors.ErrMissingCredential when no API key is configured.
func NewClient(ctx context.Context, cfg *configuration.Config) (*Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oracle configuration: %w", err)
	}
	core, err := providers.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithHandler(ctx, cfg, core, nil)
}

// NewClientWithHandler builds a Client around an arbitrary core handler.
// A nil sleep uses the real clock for retry backoff.
func NewClientWithHandler(
	ctx context.Context,
	cfg *configuration.Config,
	core transport.Handler,
	sleep retry.Sleeper,
) (*Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}

	retrier, err := retry.NewRetrier(cfg.Retry, sleep)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retry middleware: %w", err)
	}
	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	respCache := cache.New(ctx, cfg.Cache, nil)

	handler := transport.Chain(core,
		NewLoggingMiddleware(slog.Default(), false),
		respCache.Middleware(),
		retrier.Middleware(),
		limiter.Middleware(),
	)

	return &Client{
		cfg:     cfg,
		handler: handler,
		retrier: retrier,
		limiter: limiter,
		cache:   respCache,
	}, nil
}

// Generate sends prompt to the model and returns its text.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	req := &transport.Request{
		Operation: transport.OpGeneric,
		Model:     c.cfg.Model,
		Prompt:    prompt,
		Timeout:   c.cfg.Timeout,
	}
	for _, opt := range opts {
		opt(req)
	}
	switch req.CacheKey {
	case "":
		req.CacheKey = transport.IdemKey(req)
	case noCacheKey:
		req.CacheKey = ""
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Stats returns a snapshot of the middleware counters.
func (c *Client) Stats() Stats {
	return Stats{
		Retry:     c.retrier.Stats(),
		RateLimit: c.limiter.Stats(),
		Cache:     c.cache.Stats(),
	}
}

// Close releases the cache connection.
func (c *Client) Close() error {
	return c.cache.Close()
}

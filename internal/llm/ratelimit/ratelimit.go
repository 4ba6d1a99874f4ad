// Package ratelimit throttles oracle calls with a local token bucket.
//
// The oracle is a shared, rate-limited resource. The middleware paces calls
// instead of rejecting them: a call waits for its token unless the wait
// would exceed MaxWait, in which case it fails fast with a RateLimitError
// that the retry layer understands.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

var (
	errRateInvalid  = errors.New("requestsPerSecond must be greater than 0")
	errBurstInvalid = errors.New("burst must be greater than 0")
)

// Config controls the token bucket.
type Config struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	MaxWait           time.Duration `yaml:"max_wait" json:"max_wait"` // Zero waits as long as the context allows.
}

// Validate reports configuration errors for an enabled limiter.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w, got %f", errRateInvalid, c.RequestsPerSecond)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("%w, got %d", errBurstInvalid, c.Burst)
	}
	return nil
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	Admitted int64         `json:"admitted"`
	Rejected int64         `json:"rejected"`
	Waited   time.Duration `json:"waited"`
}

// Limiter paces oracle calls.
type Limiter struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	admitted atomic.Int64
	rejected atomic.Int64
	waitedNs atomic.Int64
}

// New creates a Limiter from cfg.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limit := rate.Inf
	if cfg.Enabled {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Limiter{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		logger:  slog.Default().With("component", "ratelimit"),
	}, nil
}

// Middleware returns the pacing middleware. A disabled limiter passes calls
// straight through.
func (l *Limiter) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		if !l.cfg.Enabled {
			return next
		}
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if err := l.wait(ctx); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}

func (l *Limiter) wait(ctx context.Context) error {
	reservation := l.limiter.Reserve()
	delay := reservation.Delay()

	if l.cfg.MaxWait > 0 && delay > l.cfg.MaxWait {
		// Give the token back so rejected calls do not drain the bucket.
		reservation.Cancel()
		l.rejected.Add(1)
		retryAfter := int(math.Ceil(delay.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return &llmerrors.RateLimitError{
			Provider:   "local",
			Limit:      int(l.cfg.RequestsPerSecond),
			RetryAfter: retryAfter,
			LocalLimit: true,
		}
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			reservation.Cancel()
			return ctx.Err()
		}
		l.waitedNs.Add(int64(delay))
		l.logger.Debug("paced oracle call", "delay", delay)
	}
	l.admitted.Add(1)
	return nil
}

// Stats returns a snapshot of the limiter counters.
func (l *Limiter) Stats() Stats {
	return Stats{
		Admitted: l.admitted.Load(),
		Rejected: l.rejected.Load(),
		Waited:   time.Duration(l.waitedNs.Load()),
	}
}

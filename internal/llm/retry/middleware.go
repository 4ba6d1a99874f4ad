package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// RetryAfterProvider is implemented by errors that carry a server-requested
// wait before the next attempt.
type RetryAfterProvider interface {
	GetRetryAfter() time.Duration
}

// Stats is a snapshot of retry middleware activity.
type Stats struct {
	TotalAttempts     int64 `json:"total_attempts"`
	SuccessfulRetries int64 `json:"successful_retries"`
	FailedRequests    int64 `json:"failed_requests"`
}

// Retrier retries transport calls that fail with retryable errors.
type Retrier struct {
	policy Policy
	sleep  Sleeper
	logger *slog.Logger

	totalAttempts     atomic.Int64
	successfulRetries atomic.Int64
	failedRequests    atomic.Int64
}

// NewRetrier validates p and returns a Retrier. A nil sleep uses the real clock.
func NewRetrier(p Policy, sleep Sleeper) (*Retrier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Retrier{
		policy: p,
		sleep:  sleep,
		logger: slog.Default().With("component", "retry"),
	}, nil
}

// NewMiddleware is shorthand for NewRetrier(p, sleep).Middleware().
func NewMiddleware(p Policy, sleep Sleeper) (transport.Middleware, error) {
	r, err := NewRetrier(p, sleep)
	if err != nil {
		return nil, err
	}
	return r.Middleware(), nil
}

// Middleware returns the retry middleware. Non-retryable errors are returned
// at once; retryable ones are retried with the policy's backoff, or the
// error's own Retry-After when that is longer. Requests marked NoRetry get
// one attempt.
func (r *Retrier) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.NoRetry {
				resp, err := next.Handle(ctx, req)
				r.totalAttempts.Add(1)
				if err != nil {
					r.failedRequests.Add(1)
				}
				return resp, err
			}
			var lastErr error
			for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
				if err := ctx.Err(); err != nil {
					r.failedRequests.Add(1)
					return nil, err
				}

				resp, err := next.Handle(ctx, req)
				r.totalAttempts.Add(1)
				if err == nil {
					if attempt > 1 {
						r.successfulRetries.Add(1)
						r.logger.Info("request succeeded after retry",
							"operation", req.Operation,
							"attempt", attempt)
					}
					return resp, nil
				}

				if !llmerrors.IsRetryableError(err) {
					r.failedRequests.Add(1)
					return nil, err
				}
				lastErr = err
				if attempt == r.policy.MaxAttempts {
					break
				}

				wait := r.policy.Delay(attempt)
				if hint := retryAfter(err); hint > wait {
					wait = hint
				}
				r.logger.Debug("retrying oracle call",
					"operation", req.Operation,
					"attempt", attempt,
					"backoff", wait,
					"error", err)
				if err := r.sleep(ctx, wait); err != nil {
					r.failedRequests.Add(1)
					return nil, err
				}
			}
			r.failedRequests.Add(1)
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.policy.MaxAttempts, lastErr)
		})
	}
}

// Stats returns a snapshot of the retry counters.
func (r *Retrier) Stats() Stats {
	return Stats{
		TotalAttempts:     r.totalAttempts.Load(),
		SuccessfulRetries: r.successfulRetries.Load(),
		FailedRequests:    r.failedRequests.Load(),
	}
}

func retryAfter(err error) time.Duration {
	var rap RetryAfterProvider
	if errors.As(err, &rap) {
		return rap.GetRetryAfter()
	}
	return 0
}

// Package retry provides an explicit retry policy for unreliable oracle calls.
//
// A Policy states how many attempts a call site gets and how long to wait
// between them. Do applies a policy to any operation; NewMiddleware applies
// one to transport calls. Waiting goes through a Sleeper so tests can
// substitute a fake clock.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// Configuration validation errors.
	errMaxAttemptsInvalid   = errors.New("maxAttempts must be greater than 0")
	errBaseDelayInvalid     = errors.New("baseDelay must be >= 0")
	errBackoffFactorInvalid = errors.New("backoffFactor must be >= 1.0")
	errMaxDelayInvalid      = errors.New("maxDelay must be 0 or >= baseDelay")

	// ErrExhausted is returned when every attempt allowed by a policy failed.
	ErrExhausted = errors.New("all retries exhausted")
)

// Policy describes the attempts and backoff for one call site.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`
	// BackoffFactor multiplies the wait after each further failure.
	BackoffFactor float64 `yaml:"backoff_factor" json:"backoff_factor"`
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// NoRetry is the policy of call sites that fall back instead of retrying.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1, BackoffFactor: 1}
}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("%w, got %v", errBaseDelayInvalid, p.BaseDelay)
	}
	if p.BackoffFactor < 1.0 {
		return fmt.Errorf("%w, got %f", errBackoffFactorInvalid, p.BackoffFactor)
	}
	if p.MaxDelay != 0 && p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("%w, MaxDelay: %v, BaseDelay: %v", errMaxDelayInvalid, p.MaxDelay, p.BaseDelay)
	}
	return nil
}

// Delay returns the wait after failed attempt number attempt (1-based):
// BaseDelay * BackoffFactor^(attempt-1), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.BaseDelay) * math.Pow(factor, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real-clock Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the context is
// done, or the policy's attempts run out. Waits happen only between
// attempts, never after the last one. On exhaustion the returned error
// wraps both ErrExhausted and the last failure.
func Do(ctx context.Context, p Policy, sleep Sleeper, fn func(ctx context.Context, attempt int) error) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}

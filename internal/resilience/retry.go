// Package resilience provides fault tolerance patterns
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// Retry configuration constants
const (
	DefaultMaxAttempts  = 3
	DefaultFixedDelay   = time.Second
	DefaultBaseDelay    = 250 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
	DefaultJitterFactor = 0.2
)

// Backoff decides how long to wait after a failed attempt (0-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same duration between every attempt.
type FixedBackoff time.Duration

func (f FixedBackoff) Delay(int) time.Duration { return time.Duration(f) }

// ExponentialBackoff doubles the delay per attempt, capped at Max, with jitter.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	delay := e.Base << min(attempt, 6)
	if delay > e.Max {
		delay = e.Max
	}
	jitter := float64(delay) * e.Jitter * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}

// RetryConfig holds retry settings. MaxAttempts counts the first call.
type RetryConfig struct {
	MaxAttempts int
	Backoff     Backoff
	IsRetryable func(error) bool
}

// FixedRetryConfig is the bounded contract used by persistence: n attempts, fixed delay.
func FixedRetryConfig(attempts int, delay time.Duration) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		Backoff:     FixedBackoff(delay),
		IsRetryable: apperrors.IsRetryable,
	}
}

// DefaultRetryConfig returns the persistence defaults: 3 attempts, 1s apart.
func DefaultRetryConfig() RetryConfig {
	return FixedRetryConfig(DefaultMaxAttempts, DefaultFixedDelay)
}

// RemoteRetryConfig returns settings for calls to a remote service.
func RemoteRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ExponentialBackoff{Base: DefaultBaseDelay, Max: DefaultMaxDelay, Jitter: DefaultJitterFactor},
		IsRetryable: IsRetryableGRPC,
	}
}

// IsRetryableGRPC checks if a gRPC error is worth retrying.
func IsRetryableGRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// Retry runs fn until it succeeds, the error is not retryable, or the attempts run out.
// It never calls fn more than MaxAttempts times and returns the last error.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, context.Canceled) || !cfg.IsRetryable(lastErr) || attempt == cfg.MaxAttempts-1 {
			return lastErr
		}

		delay := cfg.Backoff.Delay(attempt)
		slog.Debug("retrying after error", "attempt", attempt+1, "max", cfg.MaxAttempts, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// Do is Retry for functions that produce a value.
func Do[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	err := Retry(ctx, cfg, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Backoff == nil {
		c.Backoff = FixedBackoff(DefaultFixedDelay)
	}
	if c.IsRetryable == nil {
		c.IsRetryable = apperrors.IsRetryable
	}
	return c
}

package errors

import (
	"context"
	"fmt"
	"time"

	"nion/internal/logging"
)

// RetryConfig configures the rate-limit retry policy.
type RetryConfig struct {
	MaxAttempts  int           // total invocations before giving up (default 3)
	InitialDelay time.Duration // delay before the first retry, doubled after each (default 4s)
}

// DefaultRetryConfig returns the policy used for external generation calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 4 * time.Second,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 4 * time.Second
	}
	return c
}

// Retry invokes fn until it succeeds, fails with a non-rate-limit error, or
// the attempt budget is spent. Only rate-limit classified failures are
// retried; anything else propagates immediately. After MaxAttempts
// rate-limited invocations the result is an *ExhaustedError naming op.
func Retry(ctx context.Context, op string, config RetryConfig, fn func(ctx context.Context) error) error {
	_, err := RetryWithResult(ctx, op, config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryWithResult is Retry for operations that return a value.
func RetryWithResult[T any](ctx context.Context, op string, config RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	config = config.normalized()
	logger := logging.NewComponentLogger("retry")

	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("%s succeeded on attempt %d/%d", op, attempt, config.MaxAttempts)
			}
			return result, nil
		}

		if !IsRateLimited(err) {
			return zero, err
		}

		lastErr = err
		if attempt == config.MaxAttempts {
			break
		}

		logger.Warn("%s rate limited (attempt %d/%d), retrying in %v", op, attempt, config.MaxAttempts, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: context cancelled during backoff: %w", op, ctx.Err())
		}
		delay *= 2
	}

	logger.Warn("%s rate limited on every attempt, giving up", op)
	return zero, &ExhaustedError{Op: op, Attempts: config.MaxAttempts, Err: lastErr}
}

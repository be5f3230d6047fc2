package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retried.
	Retryable func(error) bool
}

// Do executes fn with exponential back-off retry logic. It stops early when
// the error is not retryable, returning it unchanged, or when ctx is done,
// returning the context error. After the last attempt the final error is
// returned wrapped so errors.As still sees the original type.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if r.Retryable != nil && !r.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if r.Logger != nil {
			r.Logger.Warn("retrying operation",
				"operation", operationName,
				"attempt", attempt,
				"max_attempts", attempts,
				"delay", delay,
				"error", lastErr)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts (last error: %v): %w", operationName, attempt, lastErr, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}

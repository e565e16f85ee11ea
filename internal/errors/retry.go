package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"zenodep/internal/logging"
)

// RetryConfig configures retry behavior for remote calls.
type RetryConfig struct {
	MaxAttempts  int           // Total attempts, including the first (default: 5)
	BaseDelay    time.Duration // Base delay for exponential backoff (default: 1s)
	MaxDelay     time.Duration // Maximum delay between attempts (default: 30s)
	JitterFactor float64       // Jitter factor for randomization (default: 0.25 = ±25%)
}

// DefaultRetryConfig returns the retry budget used against the Zenodo API.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// RetryWithResult executes fn with exponential backoff, retrying only
// transient failures. The budget is discarded when the call completes or
// all attempts are exhausted.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	return RetryWithResultAndLog(ctx, config, fn, nil)
}

// RetryWithResultAndLog is RetryWithResult with a custom logger.
func RetryWithResultAndLog[T any](ctx context.Context, config RetryConfig, fn func(ctx context.Context) (T, error), logger logging.Logger) (T, error) {
	if logger == nil {
		logger = logging.NewComponentLogger("retry")
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt > 1 {
			logger.Debug("Retrying (attempt %d/%d)", attempt, config.MaxAttempts)
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("Retry succeeded after %d attempts", attempt)
			}
			return result, nil
		}

		lastErr = err
		logger.Debug("Attempt %d failed: %v", attempt, err)

		if !IsTransient(err) {
			return zero, err
		}

		if attempt == config.MaxAttempts {
			logger.Warn("Retry budget (%d attempts) exhausted", config.MaxAttempts)
			break
		}

		delay := calculateBackoff(attempt-1, config)
		logger.Debug("Waiting %v before next attempt", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("retries exhausted after %d attempts: %w", config.MaxAttempts, lastErr)
}

// calculateBackoff computes baseDelay * 2^attempt with jitter, capped at
// MaxDelay.
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiplier := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(config.BaseDelay) * multiplier)
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterFactor > 0 {
		jitter := float64(delay) * config.JitterFactor
		jitterAmount := (rand.Float64()*2 - 1) * jitter
		delay = time.Duration(float64(delay) + jitterAmount)
		if delay < 0 {
			delay = config.BaseDelay
		}
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return delay
}

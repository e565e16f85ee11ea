package errors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zenodep/internal/logging"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 1, calls)
}

func TestRetryTransientUntilSuccess(t *testing.T) {
	calls := 0
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewStatusError(503, "503 Service Unavailable", "")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, 3, calls)
}

func TestRetryExhaustsBudgetOn500(t *testing.T) {
	calls := 0
	_, err := RetryWithResultAndLog(context.Background(), fastRetryConfig(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewStatusError(500, "500 Internal Server Error", "boom")
	}, logging.Nop())
	require.Error(t, err)
	require.Equal(t, 5, calls)
	require.Equal(t, 500, StatusCode(err))
	require.Contains(t, err.Error(), "retries exhausted after 5 attempts")
}

func TestRetryNeverRetriesPermanent(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), fastRetryConfig(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewStatusError(403, "403 Forbidden", "invalid token")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 403, StatusCode(err))
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := RetryWithResult(ctx, fastRetryConfig(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, calls)
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	config := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	}
	require.Equal(t, time.Second, calculateBackoff(0, config))
	require.Equal(t, 2*time.Second, calculateBackoff(1, config))
	require.Equal(t, 4*time.Second, calculateBackoff(2, config))
	// Capped past the max.
	require.Equal(t, 4*time.Second, calculateBackoff(3, config))
	require.Equal(t, 4*time.Second, calculateBackoff(10, config))
}

func TestCalculateBackoffJitterStaysInBounds(t *testing.T) {
	config := DefaultRetryConfig()
	for attempt := 0; attempt < 6; attempt++ {
		for i := 0; i < 50; i++ {
			delay := calculateBackoff(attempt, config)
			require.Greater(t, delay, time.Duration(0))
			require.LessOrEqual(t, delay, config.MaxDelay)
		}
	}
}

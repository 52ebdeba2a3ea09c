package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalLimiterFirstRequestImmediate(t *testing.T) {
	limiter := NewIntervalLimiter(10)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestIntervalLimiterSpacesRequests(t *testing.T) {
	// 20 rps = 50ms between requests.
	limiter := NewIntervalLimiter(20)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestIntervalLimiterDisabled(t *testing.T) {
	limiter := NewIntervalLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestIntervalLimiterContextCancel(t *testing.T) {
	limiter := NewIntervalLimiter(1)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIntervalLimiterConcurrentWaiters(t *testing.T) {
	// 100 rps = 10ms interval; 5 concurrent waiters need at least 40ms.
	limiter := NewIntervalLimiter(100)
	ctx := context.Background()

	start := time.Now()
	done := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			done <- limiter.Wait(ctx)
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, <-done)
	}

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

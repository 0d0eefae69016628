package httpclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
)

func fastPolicy(maxAttempts int) *RetryPolicy {
	policy := NewRetryPolicy(maxAttempts)
	policy.InitialBackoff = time.Millisecond
	policy.MaxBackoff = 5 * time.Millisecond
	return policy
}

func TestExecuteWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	policy := fastPolicy(3)
	calls := 0

	status, err := policy.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (int, error) {
		calls++
		if calls < 3 {
			return 503, nil
		}
		return 200, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_ClientErrorNotRetried(t *testing.T) {
	policy := fastPolicy(3)
	calls := 0

	status, _ := policy.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (int, error) {
		calls++
		return 404, fmt.Errorf("not found")
	})

	assert.Equal(t, 404, status)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_ExhaustsAttempts(t *testing.T) {
	policy := fastPolicy(3)
	calls := 0

	status, _ := policy.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (int, error) {
		calls++
		return 500, nil
	})

	assert.Equal(t, 500, status)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	policy := fastPolicy(5)
	policy.InitialBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := policy.ExecuteWithRetry(ctx, common.GetLogger(), func() (int, error) {
		calls++
		return 503, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff_BoundedWithJitter(t *testing.T) {
	policy := NewRetryPolicy(5)

	for attempt := 0; attempt < 10; attempt++ {
		backoff := policy.CalculateBackoff(attempt)
		assert.Greater(t, backoff, time.Duration(0))
		// Max backoff plus the 25% jitter ceiling.
		assert.LessOrEqual(t, backoff, policy.MaxBackoff+policy.MaxBackoff/4)
	}
}

func TestPolitenessDelay_ZeroDisables(t *testing.T) {
	delay := NewPolitenessDelay(0, 0)

	started := time.Now()
	require.NoError(t, delay.Wait(context.Background()))
	assert.Less(t, time.Since(started), 50*time.Millisecond)

	var nilDelay *PolitenessDelay
	require.NoError(t, nilDelay.Wait(context.Background()))
}

func TestPolitenessDelay_CancelledContext(t *testing.T) {
	delay := NewPolitenessDelay(time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, delay.Wait(ctx), context.Canceled)
}

package notifier

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterline/billing/pkg/redis"
)

func setupTestRedis(t *testing.T) redis.Adapter {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// unique connection name per test to dodge the global adapter cache
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return adapter
}

func TestIdempotencyService_AcquireDeliveryLock_FirstAttempt(t *testing.T) {
	service := NewIdempotencyService(setupTestRedis(t), DefaultIdempotencyConfig())
	ctx := context.Background()

	delCtx, err := service.AcquireDeliveryLock(ctx, "1710063000000-0")
	require.NoError(t, err)
	require.NotNil(t, delCtx)

	assert.Equal(t, "1710063000000-0", delCtx.EventID)
	assert.Equal(t, 0, delCtx.RetryCount)
	assert.False(t, delCtx.IsRetry)
	assert.True(t, delCtx.lockAcquired)
}

func TestIdempotencyService_AcquireDeliveryLock_Concurrent(t *testing.T) {
	service := NewIdempotencyService(setupTestRedis(t), DefaultIdempotencyConfig())
	ctx := context.Background()

	delCtx1, err := service.AcquireDeliveryLock(ctx, "1710063000000-1")
	require.NoError(t, err)

	delCtx2, err := service.AcquireDeliveryLock(ctx, "1710063000000-1")
	assert.ErrorIs(t, err, ErrLockAcquireFailed)
	assert.Nil(t, delCtx2)

	// first consumer still holds the lock
	assert.True(t, delCtx1.lockAcquired)
}

func TestIdempotencyService_MarkDelivered(t *testing.T) {
	service := NewIdempotencyService(setupTestRedis(t), DefaultIdempotencyConfig())
	ctx := context.Background()
	eventID := "1710063000000-2"

	delCtx, err := service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)

	require.NoError(t, service.MarkDelivered(ctx, delCtx))

	delivered, err := service.IsDelivered(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, delivered)

	// a second acquisition short-circuits
	_, err = service.AcquireDeliveryLock(ctx, eventID)
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}

func TestIdempotencyService_MarkFailure_RetryProgression(t *testing.T) {
	config := DefaultIdempotencyConfig()
	config.MaxRetries = 2
	service := NewIdempotencyService(setupTestRedis(t), config)
	ctx := context.Background()
	eventID := "1710063000000-3"

	// first attempt fails
	delCtx, err := service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)
	require.NoError(t, service.MarkFailure(ctx, delCtx, assert.AnError))

	count, err := service.GetRetryCount(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// second attempt is flagged as a retry and fails again
	delCtx, err = service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, delCtx.IsRetry)
	assert.Equal(t, 1, delCtx.RetryCount)
	require.NoError(t, service.MarkFailure(ctx, delCtx, assert.AnError))

	// retry budget exhausted
	_, err = service.AcquireDeliveryLock(ctx, eventID)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestIdempotencyService_ReleaseLock(t *testing.T) {
	service := NewIdempotencyService(setupTestRedis(t), DefaultIdempotencyConfig())
	ctx := context.Background()
	eventID := "1710063000000-4"

	delCtx, err := service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)

	require.NoError(t, service.ReleaseLock(ctx, delCtx))
	assert.False(t, delCtx.lockAcquired)

	// lock is free again without the retry count moving
	delCtx, err = service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, delCtx.RetryCount)
}

func TestIdempotencyService_MarkDelivered_CleansCounters(t *testing.T) {
	service := NewIdempotencyService(setupTestRedis(t), DefaultIdempotencyConfig())
	ctx := context.Background()
	eventID := "1710063000000-5"

	delCtx, err := service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)
	require.NoError(t, service.MarkFailure(ctx, delCtx, assert.AnError))

	delCtx, err = service.AcquireDeliveryLock(ctx, eventID)
	require.NoError(t, err)
	require.NoError(t, service.MarkDelivered(ctx, delCtx))

	count, err := service.GetRetryCount(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

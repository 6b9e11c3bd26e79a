package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartnshine/interview/internal/models"
)

// setupTestGuard creates a miniredis instance and a quota guard for testing
func setupTestGuard(t *testing.T) (*miniredis.Miniredis, *Guard) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, NewGuard(client, nil, zap.NewNop())
}

func TestReserveWithinLimit(t *testing.T) {
	_, guard := setupTestGuard(t)
	ctx := context.Background()

	remaining, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	remaining, err = guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestReserveExhaustsAtLimit(t *testing.T) {
	_, guard := setupTestGuard(t)
	ctx := context.Background()

	// free tier allows 3 sessions per day
	for i := 0; i < 3; i++ {
		_, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
		require.NoError(t, err)
	}

	_, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
	var exceeded *ExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, 3, exceeded.Limit)
	assert.Greater(t, exceeded.RetryAfter, 0)
	assert.LessOrEqual(t, exceeded.RetryAfter, 86400)
}

func TestReserveUnlimitedTier(t *testing.T) {
	_, guard := setupTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		remaining, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierLifetime)
		require.NoError(t, err)
		assert.Equal(t, -1, remaining)
	}
}

func TestReserveIsolatesUsers(t *testing.T) {
	_, guard := setupTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
		require.NoError(t, err)
	}

	// a different user still has a full allowance
	remaining, err := guard.Reserve(ctx, "user2", models.FeatureSession, models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

// Under concurrent reserves for the same user/feature/date the stored
// count must never exceed the tier limit.
func TestReserveConcurrentNeverOverGrants(t *testing.T) {
	mr, guard := setupTestGuard(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	granted := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree); err == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	assert.Equal(t, 3, count, "exactly the tier limit should be granted")

	date := guard.now().UTC().Format("2006-01-02")
	val, err := mr.Get(guard.key("user1", models.FeatureSession, date))
	require.NoError(t, err)
	assert.Equal(t, "3", val)
}

func TestRemaining(t *testing.T) {
	_, guard := setupTestGuard(t)
	ctx := context.Background()

	remaining, err := guard.Remaining(ctx, "user1", models.FeatureSession, models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	_, err = guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
	require.NoError(t, err)

	remaining, err = guard.Remaining(ctx, "user1", models.FeatureSession, models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestReset(t *testing.T) {
	_, guard := setupTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
		require.NoError(t, err)
	}

	_, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
	require.Error(t, err)

	require.NoError(t, guard.Reset(ctx, "user1", models.FeatureSession))

	remaining, err := guard.Reserve(ctx, "user1", models.FeatureSession, models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

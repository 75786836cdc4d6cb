package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return client, func() { _ = client.Close() }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func redisZ(score float64, member string) redis.Z {
	return redis.Z{Score: score, Member: member}
}

func TestRedisLimiter_Sequence(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		hits          int
		wantAllowed   []bool
		wantRemaining []int
	}{
		{
			name:          "under the limit",
			limit:         5,
			hits:          3,
			wantAllowed:   []bool{true, true, true},
			wantRemaining: []int{4, 3, 2},
		},
		{
			name:          "over the limit",
			limit:         2,
			hits:          4,
			wantAllowed:   []bool{true, true, false, false},
			wantRemaining: []int{1, 0, 0, 0},
		},
		{
			name:          "zero limit",
			limit:         0,
			hits:          2,
			wantAllowed:   []bool{false, false},
			wantRemaining: []int{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cleanup := setupTestRedis(t)
			t.Cleanup(cleanup)

			limiter := NewRedisLimiter(client, testLogger())
			for i := 0; i < tt.hits; i++ {
				res, err := limiter.Check(context.Background(), UserKey(7), tt.limit, time.Minute)
				require.NoError(t, err)
				assert.Equal(t, tt.wantAllowed[i], res.Allowed, "hit %d", i+1)
				assert.Equal(t, tt.wantRemaining[i], res.Remaining, "hit %d", i+1)
			}
		})
	}
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	window := 200 * time.Millisecond

	for i := 0; i < 2; i++ {
		res, err := limiter.Check(ctx, GlobalKey, 2, window)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := limiter.Check(ctx, GlobalKey, 2, window)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(window + 50*time.Millisecond)

	res, err = limiter.Check(ctx, GlobalKey, 2, window)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_RejectedHitsDoNotCount(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	key := CommandKey(CommandSearch, 7)

	for i := 0; i < 5; i++ {
		_, err := limiter.Check(ctx, key, 2, time.Minute)
		require.NoError(t, err)
	}

	n, err := client.ZCard(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := client.PTTL(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisLimiter_ResetAtFollowsWindow(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	before := time.Now()
	res, err := NewRedisLimiter(client, testLogger()).Check(context.Background(), UserKey(1), 1, time.Minute)
	require.NoError(t, err)

	assert.WithinDuration(t, before.Add(time.Minute), res.ResetAt, time.Second)
}

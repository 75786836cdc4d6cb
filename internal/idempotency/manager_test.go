package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (Manager, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewRedisStore(client, log), log), client, mr
}

func TestExecuteRunsOnce(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	op := func(context.Context) error {
		calls++
		return nil
	}

	res, err := m.Execute(ctx, "update:1", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	res, err = m.Execute(ctx, "update:1", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, calls)
}

func TestExecuteReleasesOnFailure(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := m.Execute(ctx, "update:2", time.Hour, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	calls := 0
	_, err = m.Execute(ctx, "update:2", time.Hour, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteInProgress(t *testing.T) {
	m, client, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, keyPrefix+"update:3", StatusProcessing, time.Minute).Err())

	_, err := m.Execute(ctx, "update:3", time.Hour, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestCompletedKeyExpires(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, "update:4", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	res, err := m.Execute(ctx, "update:4", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestCleanerRemovesKeysWithoutTTL(t *testing.T) {
	_, client, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, keyPrefix+"forever", StatusCompleted, 0).Err())
	require.NoError(t, client.Set(ctx, keyPrefix+"fine", StatusCompleted, time.Hour).Err())
	require.NoError(t, client.Set(ctx, keyPrefix+"too-long", StatusCompleted, 48*time.Hour).Err())

	removed := NewCleaner(client, nil, time.Minute, 25*time.Hour).Cleanup(ctx)
	assert.Equal(t, 2, removed)

	n, err := client.Exists(ctx, keyPrefix+"fine").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, Key("update", 42), Key("update", 42))
	assert.NotEqual(t, Key("update", 42), Key("update", 43))
	assert.NotEqual(t, Key("update", 42), Key("callback", 42))

	k := Key("message", int64(-100), 7)
	assert.True(t, strings.HasPrefix(k, "message:"))
	assert.Len(t, k, len("message:")+32)
}

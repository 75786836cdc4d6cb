package state

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	ctx := context.Background()
	userState := &UserState{
		UserID:       123,
		CurrentState: StateAnimeCountry,
		Fields: map[string]string{
			FieldName:     "Naruto",
			FieldEpisodes: "220",
		},
	}

	err := storage.SetState(ctx, userState.UserID, userState)
	assert.NoError(t, err)

	result, err := storage.GetState(ctx, userState.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, userState.UserID, result.UserID)
		assert.Equal(t, userState.CurrentState, result.CurrentState)
		assert.Equal(t, userState.Fields, result.Fields)
		assert.False(t, result.UpdatedAt.IsZero())
	}

	ttl, err := client.TTL(ctx, "user:state:123").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestRedisStorage_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := NewRedisStorage(client, testLogger(), time.Minute)
	ctx := context.Background()

	require.NoError(t, storage.SetState(ctx, 1, &UserState{UserID: 1, CurrentState: StateSearchQuery}))
	mr.FastForward(2 * time.Minute)

	_, err := storage.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	state, err := storage.GetState(context.Background(), 999)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearAndList(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)
	ctx := context.Background()

	require.NoError(t, storage.SetState(ctx, 1, &UserState{UserID: 1, CurrentState: StateBroadcastContent}))
	require.NoError(t, storage.SetState(ctx, 2, &UserState{UserID: 2, CurrentState: StateEpisodeWaitID}))

	all, err := storage.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, storage.ClearState(ctx, 1))

	_, err = storage.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)

	all, err = storage.GetAllStates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].UserID)
}

func TestRedisStorage_ListSkipsCorruptDocuments(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)
	ctx := context.Background()

	require.NoError(t, storage.SetState(ctx, 5, &UserState{UserID: 5, CurrentState: StateSearchQuery}))
	require.NoError(t, client.Set(ctx, "user:state:6", "{not json", 0).Err())
	require.NoError(t, client.Set(ctx, "user:lock:5", "token", 0).Err())

	all, err := storage.GetAllStates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(5), all[0].UserID)
}

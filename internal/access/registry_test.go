package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

const primary = int64(1000)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRegistry(client, primary, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPrimaryIsAlwaysAdmin(t *testing.T) {
	r := newTestRegistry(t)

	ok, err := r.IsAdmin(context.Background(), primary)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsAdmin(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddAndRemove(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	added, err := r.Add(ctx, primary, 42)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Add(ctx, primary, 42)
	require.NoError(t, err)
	assert.False(t, added)

	ok, err := r.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42, primary}, ids)

	removed, err := r.Remove(ctx, 42, 42)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = r.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonAdminCannotManageAdmins(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(context.Background(), 5, 6)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))

	_, err = r.Remove(context.Background(), 5, primary)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
}

func TestPrimaryCannotBeRemoved(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Remove(context.Background(), primary, primary)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))

	ok, err := r.IsAdmin(context.Background(), primary)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeed(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Seed(ctx, []int64{7, 8}))
	require.NoError(t, r.Seed(ctx, nil))

	for _, id := range []int64{7, 8} {
		ok, err := r.IsAdmin(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

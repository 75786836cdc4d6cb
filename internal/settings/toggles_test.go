package settings

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

func newToggles(t *testing.T) (*Toggles, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewToggles(client, nil), mr
}

func TestTogglesDefaults(t *testing.T) {
	toggles, _ := newToggles(t)
	ctx := context.Background()

	assert.True(t, toggles.Enabled(ctx, ProtectContent))
	assert.False(t, toggles.Enabled(ctx, Maintenance))

	all, err := toggles.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Key]bool{ProtectContent: true, Maintenance: false}, all)
}

func TestTogglesFlip(t *testing.T) {
	toggles, mr := newToggles(t)
	ctx := context.Background()

	on, err := toggles.Flip(ctx, Maintenance)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, "1", mr.HGet(featuresKey, string(Maintenance)))

	off, err := toggles.Flip(ctx, ProtectContent)
	require.NoError(t, err)
	assert.False(t, off)
	assert.False(t, toggles.Enabled(ctx, ProtectContent))
}

func TestTogglesRejectUnknownKey(t *testing.T) {
	toggles, _ := newToggles(t)

	_, err := toggles.Flip(context.Background(), Key("dark_mode"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

// Package settings stores operator feature toggles shared by every bot instance.
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

const featuresKey = "settings:features"

// Key names a feature toggle.
type Key string

const (
	// ProtectContent forbids forwarding and saving delivered episodes.
	ProtectContent Key = "protect_content"
	// Maintenance blocks non-admin users at intake.
	Maintenance Key = "maintenance"
)

// Keys lists the toggles in display order.
var Keys = []Key{ProtectContent, Maintenance}

var defaults = map[Key]bool{
	ProtectContent: true,
	Maintenance:    false,
}

// Valid reports whether k is a known toggle.
func (k Key) Valid() bool {
	_, ok := defaults[k]
	return ok
}

// Toggles reads and flips feature flags in a Redis hash.
type Toggles struct {
	client *redis.Client
	log    *slog.Logger
}

func NewToggles(client *redis.Client, log *slog.Logger) *Toggles {
	if log == nil {
		log = slog.Default()
	}
	return &Toggles{client: client, log: log}
}

// Enabled returns the toggle value, falling back to its default when unset or unreadable.
func (t *Toggles) Enabled(ctx context.Context, key Key) bool {
	val, err := t.client.HGet(ctx, featuresKey, string(key)).Result()
	if err != nil {
		if err != redis.Nil {
			t.log.Warn("failed to read feature toggle", "key", key, "error", err)
		}
		return defaults[key]
	}
	return val == "1"
}

// All returns every known toggle with its current value.
func (t *Toggles) All(ctx context.Context) (map[Key]bool, error) {
	stored, err := t.client.HGetAll(ctx, featuresKey).Result()
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("read feature toggles: %w", err))
	}

	out := make(map[Key]bool, len(Keys))
	for _, k := range Keys {
		if v, ok := stored[string(k)]; ok {
			out[k] = v == "1"
			continue
		}
		out[k] = defaults[k]
	}
	return out, nil
}

// Set stores an explicit value for key.
func (t *Toggles) Set(ctx context.Context, key Key, on bool) error {
	if !key.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown toggle %q", key))
	}

	val := "0"
	if on {
		val = "1"
	}
	if err := t.client.HSet(ctx, featuresKey, string(key), val).Err(); err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("set feature toggle %s: %w", key, err))
	}
	return nil
}

// Flip inverts key and returns the new value.
func (t *Toggles) Flip(ctx context.Context, key Key) (bool, error) {
	if !key.Valid() {
		return false, apperrors.NewValidationError(fmt.Sprintf("unknown toggle %q", key))
	}

	next := !t.Enabled(ctx, key)
	if err := t.Set(ctx, key, next); err != nil {
		return false, err
	}

	t.log.Info("feature toggle changed", "key", key, "enabled", next)
	return next, nil
}

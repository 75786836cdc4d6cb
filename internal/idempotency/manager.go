// Package idempotency suppresses repeated processing of the same inbound update.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultLockTTL = 2 * time.Minute
	claimAttempts  = 3
	claimRetry     = 100 * time.Millisecond
)

// ErrRequestInProgress is returned while another worker is still handling the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation is the work guarded by a key.
type Operation func(ctx context.Context) error

// Result reports whether the operation ran or was suppressed as a duplicate.
type Result struct {
	Duplicate bool
}

// Manager runs an operation at most once per key within ttl.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	log     *slog.Logger
	lockTTL time.Duration
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		log:     log,
		lockTTL: defaultLockTTL,
	}
}

// Execute claims key and runs fn. A failed operation releases the claim so a
// redelivered update is processed again.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for attempt := 1; ; attempt++ {
		claimed, err := m.store.Claim(ctx, key, m.lockTTL)
		if err != nil {
			return nil, err
		}
		if claimed {
			break
		}

		status, err := m.store.Status(ctx, key)
		if err != nil {
			return nil, err
		}

		switch status {
		case StatusProcessing:
			return nil, ErrRequestInProgress
		case StatusCompleted:
			m.log.Debug("duplicate update suppressed", slog.String("key", key))
			return &Result{Duplicate: true}, nil
		}

		// the claim expired between Claim and Status
		if attempt == claimAttempts {
			return nil, ErrRequestInProgress
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(claimRetry):
		}
	}

	if err := fn(ctx); err != nil {
		if relErr := m.store.Release(context.WithoutCancel(ctx), key); relErr != nil {
			m.log.Warn("failed to release idempotency claim", slog.String("key", key), slog.Any("error", relErr))
		}
		return nil, err
	}

	if err := m.store.Complete(context.WithoutCancel(ctx), key, ttl); err != nil {
		return nil, err
	}

	return &Result{}, nil
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found", NewNotFoundError("title"), ErrNotFound, true},
		{"wrapped not found", fmt.Errorf("load: %w", NewNotFoundError("episode")), ErrNotFound, true},
		{"permission", NewPermissionError("ban"), ErrPermissionDenied, true},
		{"funds", NewInsufficientFundsError(10, 5), ErrInsufficientFunds, true},
		{"different code", NewValidationError("bad"), ErrNotFound, false},
		{"plain error", errors.New("boom"), ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeStore, CodeOf(fmt.Errorf("x: %w", NewDatabaseError(errors.New("db")))))
	assert.Empty(t, CodeOf(errors.New("plain")))
}

var testBackoff = Backoff{Retries: 3, Base: time.Millisecond, Max: 5 * time.Millisecond}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testBackoff, func() error {
		calls++
		return NewValidationError("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesConflicts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testBackoff, func() error {
		calls++
		if calls < 3 {
			return NewConflictError(errors.New("duplicate"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, testBackoff, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testBackoff, func() error {
		calls++
		return NewConflictError(errors.New("duplicate"))
	})

	assert.Equal(t, CodeOf(err), CodeStore)
	assert.Equal(t, 4, calls)
}

func TestBackoffDelayIsCapped(t *testing.T) {
	b := Backoff{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	for attempt := 0; attempt < 70; attempt++ {
		d := b.delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreakerWithSettings(BreakerSettings{MinRequests: 2, OpenTimeout: time.Second, HalfOpenMaxRequests: 1})
	cb.now = func() time.Time { return now }

	failing := func() error { return errors.New("send failed") }
	_ = cb.Call(failing)
	_ = cb.Call(failing)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	now := time.Now()
	var transitions []string
	cb := NewCircuitBreakerWithSettings(BreakerSettings{
		MinRequests:         1,
		OpenTimeout:         time.Second,
		HalfOpenMaxRequests: 2,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))

	assert.Equal(t, []string{
		"closed->open", "open->half-open", "half-open->open",
		"open->half-open", "half-open->closed",
	}, transitions)
}

package errors

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Backoff is an exponential retry policy with full jitter.
type Backoff struct {
	// Retries is the number of attempts after the first one.
	Retries int
	Base    time.Duration
	Max     time.Duration
}

// DefaultBackoff suits short store conflicts.
var DefaultBackoff = Backoff{Retries: 3, Base: 100 * time.Millisecond, Max: 5 * time.Second}

// Retry runs fn until it succeeds, fails with an error that is not marked
// Retryable, or the policy is exhausted. The last error is returned.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	if fn == nil {
		return nil
	}

	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil || !IsRetryable(err) || attempt >= b.Retries {
			return err
		}

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryable reports whether err carries an AppError marked Retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}

// delay is a random duration in [0, min(Max, Base*2^attempt)].
func (b Backoff) delay(attempt int) time.Duration {
	ceiling := b.Base << attempt
	if b.Max > 0 && (ceiling > b.Max || ceiling <= 0) {
		ceiling = b.Max
	}
	if ceiling <= 0 {
		return 0
	}
	return rand.N(ceiling + 1)
}

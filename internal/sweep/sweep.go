// Package sweep runs the periodic maintenance passes over Redis keys.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Func performs one pass and returns how many items it removed.
type Func func(ctx context.Context) int

// Every runs fn each interval until ctx is done. A non-positive interval
// disables the loop.
func Every(ctx context.Context, interval time.Duration, name string, log *slog.Logger, fn Func) {
	if interval <= 0 || fn == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("sweep", name))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("sweep stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			if removed := fn(ctx); removed > 0 {
				log.Info("sweep pass finished", slog.Int("removed", removed))
			}
		}
	}
}

// ScanKeys hands every key matching pattern to fn, one SCAN batch at a time.
func ScanKeys(ctx context.Context, client *redis.Client, pattern string, fn func(keys []string)) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			fn(keys)
		}
		if next == 0 || ctx.Err() != nil {
			return ctx.Err()
		}
		cursor = next
	}
}

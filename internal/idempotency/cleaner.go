package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/anime-bot/internal/sweep"
)

// Cleaner removes processed-update keys that lost their expiry, for
// instance after a manual restore or a PERSIST issued by hand.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	maxTTL   time.Duration
}

func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxTTL time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		log:      log,
		interval: interval,
		maxTTL:   maxTTL,
	}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	sweep.Every(ctx, c.interval, "idempotency", c.log, c.Cleanup)
}

// Cleanup deletes keys without a TTL or with a TTL above maxTTL.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	removed := 0
	err := sweep.ScanKeys(ctx, c.client, keyPrefix+"*", func(keys []string) {
		pipe := c.client.Pipeline()
		ttls := make([]*redis.DurationCmd, len(keys))
		for i, key := range keys {
			ttls[i] = pipe.TTL(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			c.log.Warn("idempotency cleaner: ttl lookup failed", slog.Any("error", err))
			return
		}

		var stale []string
		for i, cmd := range ttls {
			// -1 means no expiry, -2 means already gone
			if ttl := cmd.Val(); ttl == -1 || ttl > c.maxTTL {
				stale = append(stale, keys[i])
			}
		}
		if len(stale) == 0 {
			return
		}

		n, err := c.client.Del(ctx, stale...).Result()
		if err != nil {
			c.log.Warn("idempotency cleaner: delete failed", slog.Any("error", err))
			return
		}
		removed += int(n)
	})
	if err != nil {
		c.log.Error("idempotency cleaner: scan failed", slog.Any("error", err))
	}

	return removed
}

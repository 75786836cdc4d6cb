package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/anime-bot/internal/sweep"
)

const defaultMaxAge = 5 * time.Minute

// Cleaner trims hits older than maxAge from every bucket, drops buckets left
// empty and evicts idle buckets of the in-memory fallback.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
	memory   *MemoryLimiter
}

// NewCleaner returns a Cleaner. maxAge should cover the longest configured window.
func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	return &Cleaner{
		client:   client,
		log:      log,
		interval: interval,
		maxAge:   maxAge,
	}
}

// WithMemory makes every pass also evict idle buckets of m.
func (c *Cleaner) WithMemory(m *MemoryLimiter) *Cleaner {
	c.memory = m
	return c
}

func (c *Cleaner) Run(ctx context.Context) {
	sweep.Every(ctx, c.interval, "ratelimit", c.log, c.Cleanup)
}

// Cleanup runs one pass and returns the number of Redis buckets removed.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	if c.memory != nil {
		c.memory.Cleanup(c.maxAge)
	}
	if c.client == nil {
		return 0
	}

	// bucket scores are unix milliseconds
	cutoff := "(" + strconv.FormatInt(time.Now().Add(-c.maxAge).UnixMilli(), 10)
	removed := 0

	err := sweep.ScanKeys(ctx, c.client, keyPrefix+"*", func(keys []string) {
		pipe := c.client.TxPipeline()
		cards := make([]*redis.IntCmd, len(keys))
		for i, key := range keys {
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
			cards[i] = pipe.ZCard(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Warn("rate limit cleaner: trim failed", slog.Any("error", err))
			return
		}

		var empty []string
		for i, card := range cards {
			if card.Val() == 0 {
				empty = append(empty, keys[i])
			}
		}
		if len(empty) == 0 {
			return
		}

		n, err := c.client.Del(ctx, empty...).Result()
		if err != nil {
			c.log.Warn("rate limit cleaner: delete failed", slog.Any("error", err))
			return
		}
		removed += int(n)
	})
	if err != nil {
		c.log.Error("rate limit cleaner: scan failed", slog.Any("error", err))
	}

	return removed
}

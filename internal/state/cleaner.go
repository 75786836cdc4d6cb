package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/anime-bot/internal/sweep"
)

// Cleaner abandons flows whose last step is older than ttl, so a user who
// walked away mid-flow comes back to the main menu.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewCleaner returns a Cleaner sweeping storage every interval. A zero ttl
// or interval disables it.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
	}
}

// Run sweeps until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.ttl <= 0 {
		return
	}
	sweep.Every(ctx, c.interval, "state", c.log, c.Cleanup)
}

// Cleanup performs a single sweep and returns how many states it removed.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list states", slog.Any("error", err))
		return 0
	}

	cutoff := time.Now().Add(-c.ttl)
	cleared := 0
	for _, us := range states {
		if ctx.Err() != nil {
			break
		}
		if us == nil || !us.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := c.storage.ClearState(ctx, us.UserID); err != nil {
			c.log.Error("state cleaner failed to clear state",
				slog.Int64("user_id", us.UserID),
				slog.String("state", string(us.CurrentState)),
				slog.Any("error", err),
			)
			continue
		}
		cleared++
	}

	return cleared
}

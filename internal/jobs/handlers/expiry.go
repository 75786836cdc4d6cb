package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/anime-bot/internal/jobs"
)

// Expirer downgrades subscribers whose paid days ran out.
type Expirer interface {
	ExpireSubscriptions(ctx context.Context) ([]int64, error)
}

// ExpirySweepHandler runs the periodic subscription sweep and queues one
// notice per downgraded user.
type ExpirySweepHandler struct {
	ledger Expirer
	queue  jobs.Manager
	log    *slog.Logger
}

func NewExpirySweepHandler(ledger Expirer, queue jobs.Manager, log *slog.Logger) *ExpirySweepHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ExpirySweepHandler{ledger: ledger, queue: queue, log: log}
}

func (h *ExpirySweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	expired, err := h.ledger.ExpireSubscriptions(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "expiry sweep failed", slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	queued := 0
	for _, userID := range expired {
		if h.queue == nil {
			break
		}

		task, err := jobs.NewExpiryNoticeTask(userID)
		if err != nil {
			h.log.ErrorContext(ctx, "expiry notice: failed to build task", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}
		if _, err := h.queue.Enqueue(ctx, task); err != nil {
			h.log.WarnContext(ctx, "expiry notice: failed to enqueue", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}
		queued++
	}

	h.log.InfoContext(ctx, "expiry sweep finished",
		slog.Int("expired", len(expired)),
		slog.Int("notices_queued", queued),
	)
	return nil
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/anime-bot/internal/jobs"
)

// Notifier delivers a text message to one user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// ExpiryNoticeHandler tells a user that the VIP subscription has ended.
type ExpiryNoticeHandler struct {
	notifier Notifier
	text     string
	log      *slog.Logger
}

func NewExpiryNoticeHandler(notifier Notifier, text string, log *slog.Logger) *ExpiryNoticeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ExpiryNoticeHandler{notifier: notifier, text: text, log: log}
}

func (h *ExpiryNoticeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ExpiryNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "expiry notice: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID <= 0 {
		return fmt.Errorf("user id %d: %w", payload.UserID, asynq.SkipRetry)
	}

	if err := h.notifier.Notify(ctx, payload.UserID, h.text); err != nil {
		h.log.WarnContext(ctx, "expiry notice: delivery failed", slog.Int64("user_id", payload.UserID), slog.Any("error", err))
		return err
	}

	h.log.DebugContext(ctx, "expiry notice delivered", slog.Int64("user_id", payload.UserID))
	return nil
}

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/idempotency"
)

// UpdateTTL is how long a processed update id is remembered.
const UpdateTTL = 24 * time.Hour

// Idempotency drops updates Telegram delivers more than once. A nil manager
// disables the check.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if manager == nil || next == nil {
			return next
		}

		return func(c telebot.Context) error {
			key, ok := deliveryKey(c)
			if !ok {
				return next(c)
			}

			_, err := manager.Execute(handlers.RequestContext(c), key, UpdateTTL, func(context.Context) error {
				return next(c)
			})
			if errors.Is(err, idempotency.ErrRequestInProgress) {
				log.Debug("duplicate delivery skipped", slog.String("key", key))
				return nil
			}
			return err
		}
	}
}

// deliveryKey names one delivery. The update id is unique per bot; the
// callback and message ids cover contexts built outside the poller.
func deliveryKey(c telebot.Context) (string, bool) {
	if id := c.Update().ID; id != 0 {
		return idempotency.Key("update", id), true
	}
	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return idempotency.Key("callback", cb.ID), true
	}
	msg := c.Message()
	if msg == nil || msg.ID == 0 || msg.Chat == nil {
		return "", false
	}
	return idempotency.Key("message", msg.Chat.ID, msg.ID), true
}

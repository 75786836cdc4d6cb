package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/ratelimit"
)

// Classifier maps an update to a rate-limited command class, or "" when only
// the per-user limit applies.
type Classifier func(c telebot.Context) string

// MessageFunc returns the text shown to a rate-limited user.
type MessageFunc func(c telebot.Context) string

// RateLimitMiddleware enforces per-user and per-command rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter  ratelimit.Limiter
	rules    *ratelimit.Rules
	classify Classifier
	message  MessageFunc
	log      *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component. message
// renders the reply sent when a limit is hit.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, classify Classifier, message MessageFunc, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter:  limiter,
		rules:    rules,
		classify: classify,
		message:  message,
		log:      log,
	}
}

// Handle returns a telebot middleware that enforces the limits.
// Limiter failures never block the update.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		ctx := context.Background()

		if limit, window, err := m.rules.GetGlobalLimit(); err == nil && limit > 0 {
			if !m.allow(ctx, ratelimit.GlobalKey, limit, window, userID) {
				return m.reject(c, userID, "global")
			}
		}

		limit, window, err := m.rules.GetPerUserLimit()
		if err != nil {
			m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}
		if !m.allow(ctx, ratelimit.UserKey(userID), limit, window, userID) {
			return m.reject(c, userID, "per_user")
		}

		if m.classify == nil {
			return next(c)
		}
		command := m.classify(c)
		if command == "" {
			return next(c)
		}

		limit, window, err = m.rules.GetCommandLimit(command)
		if err != nil {
			if !errors.Is(err, ratelimit.ErrUnsupportedCommand) {
				m.log.Error("failed to load command rate limit", slog.String("command", command), slog.Any("error", err))
			}
			return next(c)
		}
		if !m.allow(ctx, ratelimit.CommandKey(command, userID), limit, window, userID) {
			return m.reject(c, userID, command)
		}

		return next(c)
	}
}

// Wrap adapts Handle to the router middleware chain.
func (m *RateLimitMiddleware) Wrap(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}
	return handlers.Handler(m.Handle(telebot.HandlerFunc(next)))
}

func (m *RateLimitMiddleware) allow(ctx context.Context, key string, limit int, window time.Duration, userID int64) bool {
	result, err := m.limiter.Check(ctx, key, limit, window)
	if err != nil {
		if errors.Is(err, ratelimit.ErrLimitExceeded) {
			return false
		}
		m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
		return true
	}
	return result == nil || result.Allowed
}

func (m *RateLimitMiddleware) reject(c telebot.Context, userID int64, scope string) error {
	m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID), slog.String("scope", scope))

	text := "Too many requests"
	if m.message != nil {
		text = m.message(c)
	}

	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text})
	}
	return c.Send(text)
}

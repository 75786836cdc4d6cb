package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/access"
	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/ledger"
	"github.com/Proton-105/anime-bot/internal/middleware"
	"github.com/Proton-105/anime-bot/internal/ratelimit"
	"github.com/Proton-105/anime-bot/internal/settings"
	"github.com/Proton-105/anime-bot/internal/state"
	"github.com/Proton-105/anime-bot/internal/user"
	"github.com/Proton-105/anime-bot/pkg/logger"
	"github.com/Proton-105/anime-bot/pkg/metrics"
)

const lastActiveTimeout = 5 * time.Second

// errorMessages maps application error codes to user-facing texts.
var errorMessages = map[string]string{
	apperrors.CodeValidation:        "errors.validation",
	apperrors.CodeStore:             "errors.store",
	apperrors.CodeTransport:         "errors.transport",
	apperrors.CodeState:             "errors.state",
	apperrors.CodeRateLimit:         "errors.rate_limit",
	apperrors.CodeNotFound:          "errors.not_found",
	apperrors.CodePermission:        "errors.permission",
	apperrors.CodeInsufficientFunds: "errors.insufficient_funds",
}

// translatorFor picks the catalog matching the sender's client language.
func translatorFor(m *i18n.Manager, c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return m.Translator(lang)
}

// userMessage renders err for the sender.
func userMessage(t i18n.Translator, err error) string {
	if errors.Is(err, state.ErrStateLocked) {
		return t.T("messages.busy")
	}
	if key, ok := errorMessages[apperrors.CodeOf(err)]; ok {
		return t.T(key)
	}
	return t.T("errors.generic")
}

// reply answers a callback with an alert, or sends text for messages.
func reply(c telebot.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler, texts *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					if errHandler != nil {
						errHandler.Handle(handlers.RequestContext(c), fmt.Errorf("panic recovered: %v", r))
					}

					if c != nil {
						if sendErr := reply(c, translatorFor(texts, c).T("errors.generic")); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// CorrelationMiddleware starts the per-update context carrying a fresh correlation id.
func CorrelationMiddleware() handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			c.Set(handlers.KeyContext, logger.WithCorrelationID(context.Background(), ""))
			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler, texts *i18n.Manager) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if errHandler != nil {
				if appErr := errHandler.Handle(handlers.RequestContext(c), err); appErr != nil {
					metrics.RecordError(appErr.Code, string(appErr.Severity))
				}
			}

			if c != nil {
				_ = reply(c, userMessage(translatorFor(texts, c), err))
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates. Message texts
// are never logged; the action label stands in for them.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			ctx := handlers.RequestContext(c)
			attrs := []any{
				slog.Int64("user_id", userID),
				slog.String("action", middleware.ActionLabel(c)),
				slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
			}

			log.Debug("handling update", attrs...)
			err := next(c)
			log.Info("handled update", append(attrs,
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)...)

			return err
		}
	}
}

// EnsureUserMiddleware registers the sender on first contact and stores the
// user and the operator flag on the context. "/start <id>" records the
// referrer of a new user.
func EnsureUserMiddleware(users *user.Service, admins *access.Registry, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if users == nil || c.Sender() == nil {
				return next(c)
			}

			ctx := handlers.RequestContext(c)
			u, err := users.GetOrCreate(ctx, c.Sender(), referralOf(c))
			if err != nil {
				return err
			}
			c.Set(handlers.KeyUser, u)

			if admins != nil {
				isAdmin, err := admins.IsAdmin(ctx, c.Sender().ID)
				if err != nil {
					log.Warn("admin check failed", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
				}
				c.Set(handlers.KeyAdmin, isAdmin)
			}

			return next(c)
		}
	}
}

func referralOf(c telebot.Context) *int64 {
	if c.Callback() != nil {
		return nil
	}

	text := strings.TrimSpace(c.Text())
	if commandName(text) != CommandStart {
		return nil
	}

	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// LastActiveMiddleware records user activity timestamps without blocking request flow.
func LastActiveMiddleware(users *user.Service, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if users != nil && c.Sender() != nil {
				go func(id int64) {
					ctx, cancel := context.WithTimeout(context.Background(), lastActiveTimeout)
					defer cancel()

					if err := users.UpdateLastActive(ctx, id); err != nil {
						log.Debug("failed to update last activity", slog.Int64("user_id", id), slog.Any("error", err))
					}
				}(c.Sender().ID)
			}

			return next(c)
		}
	}
}

// GateMiddleware stops banned users, and everyone but operators while
// maintenance mode is on.
func GateMiddleware(ledgerService *ledger.Service, toggles *settings.Toggles, texts *i18n.Manager) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if c.Sender() == nil {
				return next(c)
			}
			if isAdmin, _ := c.Get(handlers.KeyAdmin).(bool); isAdmin {
				return next(c)
			}

			ctx := handlers.RequestContext(c)
			t := translatorFor(texts, c)

			if ledgerService != nil {
				banned, err := ledgerService.IsBanned(ctx, c.Sender().ID)
				if err != nil {
					return err
				}
				if banned {
					return reply(c, t.T("messages.banned"))
				}
			}

			if toggles != nil && toggles.Enabled(ctx, settings.Maintenance) {
				return reply(c, t.T("messages.maintenance"))
			}

			return next(c)
		}
	}
}

// RateLimitClassifier maps an update to its rate-limited command class.
// Operators are never throttled by command class.
func RateLimitClassifier(admins *access.Registry) middleware.Classifier {
	return func(c telebot.Context) string {
		if admins != nil && c.Sender() != nil {
			if isAdmin, err := admins.IsAdmin(context.Background(), c.Sender().ID); err == nil && isAdmin {
				return ""
			}
		}
		return classify(c)
	}
}

func classify(c telebot.Context) string {
	if cb := c.Callback(); cb != nil {
		action, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			return ""
		}
		switch action {
		case keyboard.ActionShop:
			return ratelimit.CommandPurchase
		case keyboard.ActionBroadcast:
			return ratelimit.CommandBroadcast
		case keyboard.ActionSearchName, keyboard.ActionAll:
			return ratelimit.CommandSearch
		}
		return ""
	}

	if c.Message() == nil || c.Message().Media() != nil {
		return ""
	}

	text := strings.TrimSpace(c.Text())
	switch {
	case commandName(text) == CommandBroadcast:
		return ratelimit.CommandBroadcast
	case text != "" && !strings.HasPrefix(text, "/"):
		return ratelimit.CommandSearch
	}
	return ""
}

// RateLimitMessage renders the reply sent to throttled users.
func RateLimitMessage(texts *i18n.Manager) middleware.MessageFunc {
	return func(c telebot.Context) string {
		return translatorFor(texts, c).T("errors.rate_limit")
	}
}

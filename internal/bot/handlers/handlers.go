// Package handlers implements the chat actions of the bot on top of the domain services.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/access"
	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/broadcast"
	"github.com/Proton-105/anime-bot/internal/catalog"
	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/ledger"
	"github.com/Proton-105/anime-bot/internal/settings"
	"github.com/Proton-105/anime-bot/internal/state"
	"github.com/Proton-105/anime-bot/internal/user"
)

// Handler answers one update.
type Handler func(c telebot.Context) error

// Middleware decorates a Handler.
type Middleware func(Handler) Handler

// Chain wraps h so that mws run in the given order, the first one outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	if h == nil {
		return nil
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Keys of values stored on telebot.Context by the intake middlewares.
const (
	KeyContext = "request_ctx"
	KeyUser    = "user"
	KeyAdmin   = "is_admin"
	KeyState   = "user_state"
)

// Deps are the services the chat actions run on.
type Deps struct {
	Users     *user.Service
	Catalog   *catalog.Service
	Ledger    *ledger.Service
	Admins    *access.Registry
	Toggles   *settings.Toggles
	FSM       state.StateMachine
	Fanout    *broadcast.Fanout
	I18n      *i18n.Manager
	Validator state.Validator
	Currency  string
	StartedAt time.Time
	Log       *slog.Logger
}

// Handlers groups every chat action.
type Handlers struct {
	Deps
}

// New returns the chat actions bound to d.
func New(d Deps) *Handlers {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.StartedAt.IsZero() {
		d.StartedAt = time.Now()
	}
	return &Handlers{Deps: d}
}

// RequestContext returns the per-update context set by the intake middlewares.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(KeyContext).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// CallbackPayload returns the callback data following the action id.
func CallbackPayload(c telebot.Context) string {
	if c == nil || c.Callback() == nil {
		return ""
	}
	_, data, err := keyboard.DecodeCallback(c.Callback().Data)
	if err != nil {
		return ""
	}
	return data
}

// CurrentUser returns the stored user of the sender, when intake has loaded it.
func CurrentUser(c telebot.Context) *domain.User {
	u, _ := c.Get(KeyUser).(*domain.User)
	return u
}

// CurrentState returns the pending step the dispatcher routed on.
func CurrentState(c telebot.Context) *state.UserState {
	us, _ := c.Get(KeyState).(*state.UserState)
	return us
}

// Translator picks the catalog matching the sender's client language.
func (h *Handlers) Translator(c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return h.I18n.Translator(lang)
}

func (h *Handlers) buttons(t i18n.Translator) *keyboard.Builder {
	return keyboard.NewBuilder(t, h.Log)
}

// IsAdmin reports the operator flag set at intake, asking the registry when it is missing.
func (h *Handlers) IsAdmin(c telebot.Context) bool {
	if v, ok := c.Get(KeyAdmin).(bool); ok {
		return v
	}
	if c.Sender() == nil || h.Admins == nil {
		return false
	}
	ok, err := h.Admins.IsAdmin(RequestContext(c), c.Sender().ID)
	if err != nil {
		h.Log.Warn("admin check failed", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
		return false
	}
	return ok
}

// AdminOnly rejects non-operators before next runs.
func (h *Handlers) AdminOnly(next Handler) Handler {
	return func(c telebot.Context) error {
		if h.IsAdmin(c) {
			return next(c)
		}
		t := h.Translator(c)
		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: t.T("messages.not_admin"), ShowAlert: true})
		}
		return c.Send(t.T("messages.not_admin"))
	}
}

// ack answers a pending callback query so the client stops its spinner.
func ack(c telebot.Context) {
	if c.Callback() == nil {
		return
	}
	_ = c.Respond()
}

// notify answers a callback with a toast, or sends text for messages.
func notify(c telebot.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}

// mainMenu sends text together with the main reply keyboard.
func (h *Handlers) mainMenu(c telebot.Context, t i18n.Translator, text string) error {
	return c.Send(text, keyboard.MainMenu(t, h.IsAdmin(c)))
}

// startFlow enters the first step of flow, replacing any stale state.
func (h *Handlers) startFlow(c telebot.Context, step state.State, fields map[string]string) error {
	return h.FSM.SetState(RequestContext(c), c.Sender().ID, step, fields)
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

func senderID(c telebot.Context) int64 {
	if c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func dateString(t time.Time) string {
	return t.Format("2006-01-02")
}

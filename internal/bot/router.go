package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/i18n"
)

// Router dispatches commands, callbacks, menu labels and state-aware updates.
//
// Messages are routed in this order: slash command, the cancel label, the
// pending conversation step, other menu labels, and finally the default
// handler. Callbacks are routed by the action id in their data.
type Router struct {
	mu             sync.RWMutex
	commands       map[string]handlers.Handler
	actions        map[keyboard.Action]handlers.Handler
	dispatcher     *Dispatcher
	labels         *i18n.Manager
	defaultHandler handlers.Handler
	unknownCommand handlers.Handler
	middlewares    []handlers.Middleware
	log            *slog.Logger
}

// NewRouter builds a Router with empty registries. labels resolves
// reply-keyboard texts to action ids.
func NewRouter(dispatcher *Dispatcher, labels *i18n.Manager, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		actions:     make(map[keyboard.Action]handlers.Handler),
		dispatcher:  dispatcher,
		labels:      labels,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// RegisterAction registers a handler for a callback action id. Menu labels
// resolving to the same id reach the same handler.
func (r *Router) RegisterAction(action keyboard.Action, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for text nothing else claimed.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = h
}

// SetUnknownCommand sets the handler for slash commands without a registration.
func (r *Router) SetUnknownCommand(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknownCommand = h
}

// Route runs the middleware chain around routing of the incoming update.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	wrapped := r.applyMiddlewares(r.route)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) route(c telebot.Context) error {
	if callback := c.Callback(); callback != nil {
		return r.handleCallback(c, callback.Data)
	}
	return r.handleMessage(c)
}

func (r *Router) handleCallback(c telebot.Context, data string) error {
	action, _, err := keyboard.DecodeCallback(data)
	if err != nil {
		r.log.Info("undecodable callback data", slog.String("data", data))
		return c.Respond()
	}

	handler := r.getAction(action)
	if handler == nil {
		r.log.Info("no callback handler found", slog.String("action", string(action)))
		return c.Respond()
	}

	return handler(c)
}

func (r *Router) handleMessage(c telebot.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	isMedia := msg.Media() != nil
	text := strings.TrimSpace(c.Text())

	if !isMedia && strings.HasPrefix(text, "/") {
		if handler := r.getCommand(commandName(text)); handler != nil {
			return handler(c)
		}
		if handler := r.getUnknownCommand(); handler != nil {
			return handler(c)
		}
		return nil
	}

	var labelAction keyboard.Action
	if !isMedia {
		if action, ok := r.labels.Action(text); ok {
			labelAction = keyboard.Action(action)
		}
	}

	if labelAction == keyboard.ActionCancel {
		if handler := r.getAction(keyboard.ActionCancel); handler != nil {
			return handler(c)
		}
	}

	if r.dispatcher != nil {
		handled, err := r.dispatcher.Dispatch(c)
		if handled || err != nil {
			return err
		}
	}

	if labelAction != "" {
		if handler := r.getAction(labelAction); handler != nil {
			return handler(c)
		}
	}

	if isMedia {
		return nil
	}

	if handler := r.getDefaultHandler(); handler != nil {
		return handler(c)
	}

	return nil
}

// commandName normalizes "/Start@anime_bot 42" to "/start".
func commandName(text string) string {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}

func (r *Router) getCommand(cmd string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[cmd]
}

func (r *Router) getAction(action keyboard.Action) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[action]
}

func (r *Router) getDefaultHandler() handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultHandler
}

func (r *Router) getUnknownCommand() handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unknownCommand
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	return handlers.Chain(h, r.middlewaresSnapshot()...)
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}

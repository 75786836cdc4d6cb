package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/idempotency"
	"github.com/Proton-105/anime-bot/internal/middleware"
	"github.com/Proton-105/anime-bot/internal/state"
	"github.com/Proton-105/anime-bot/pkg/config"
)

// Bot wraps telebot.Bot with the router serving the chat actions.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	handlers   *handlers.Handlers
	router     *Router
	dispatcher *Dispatcher
}

// Options are the collaborators of the update pipeline besides the chat actions.
type Options struct {
	Errors      *apperrors.Handler
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
}

// NewTelebot builds the Telegram client configured for polling or webhook mode.
func NewTelebot(cfg config.Config) (*telebot.Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Server.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, apperrors.NewTransportError("initialize telebot", err)
	}

	return tb, nil
}

// New wires the chat actions in deps to tb.
func New(tb *telebot.Bot, deps handlers.Deps, opts Options) (*Bot, error) {
	if tb == nil {
		return nil, fmt.Errorf("telebot is required")
	}

	h := handlers.New(deps)
	dispatcher := NewDispatcher(deps.FSM, h.Log)

	b := &Bot{
		telebot:    tb,
		log:        h.Log,
		handlers:   h,
		router:     NewRouter(dispatcher, deps.I18n, h.Log),
		dispatcher: dispatcher,
	}

	b.setupMiddlewares(opts)
	b.registerCommands()
	b.registerActions()
	b.registerSteps()
	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.log.Info("starting telegram bot")
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) setupMiddlewares(opts Options) {
	d := b.handlers.Deps

	b.router.Use(RecoveryMiddleware(b.log, opts.Errors, d.I18n))
	b.router.Use(CorrelationMiddleware())
	b.router.Use(ErrorHandlingMiddleware(opts.Errors, d.I18n))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)
	if opts.RateLimit != nil {
		b.router.Use(opts.RateLimit.Wrap)
	}
	b.router.Use(middleware.Idempotency(opts.Idempotency, b.log))
	b.router.Use(EnsureUserMiddleware(d.Users, d.Admins, b.log))
	b.router.Use(LastActiveMiddleware(d.Users, b.log))
	b.router.Use(GateMiddleware(d.Ledger, d.Toggles, d.I18n))
}

func (b *Bot) registerCommands() {
	h := b.handlers

	b.router.RegisterCommand(CommandStart, h.Start)
	b.router.RegisterCommand(CommandHelp, h.Help)
	b.router.RegisterCommand(CommandCancel, h.Cancel)
	b.router.RegisterCommand(CommandPanel, h.AdminOnly(h.Panel))
	b.router.RegisterCommand(CommandBroadcast, h.AdminOnly(h.StartBroadcast))
	b.router.RegisterCommand(CommandAddEpisode, h.AdminOnly(h.StartAddEpisode))
	b.router.RegisterCommand(CommandAddAdmin, h.AdminOnly(h.AddAdmin))
	b.router.RegisterCommand(CommandRemoveAdmin, h.AdminOnly(h.RemoveAdmin))

	b.router.SetUnknownCommand(h.Help)
	b.router.SetDefault(h.Search)
}

func (b *Bot) registerActions() {
	h := b.handlers

	public := map[keyboard.Action]handlers.Handler{
		keyboard.ActionSearch:     h.SearchMenu,
		keyboard.ActionSearchName: h.SearchByName,
		keyboard.ActionAll:        h.All,
		keyboard.ActionTitle:      h.TitleCard,
		keyboard.ActionEpisode:    h.Episode,
		keyboard.ActionPage:       h.Page,
		keyboard.ActionVIP:        h.VIP,
		keyboard.ActionShop:       h.Shop,
		keyboard.ActionBalance:    h.Balance,
		keyboard.ActionHelp:       h.Help,
		keyboard.ActionClose:      h.Close,
		keyboard.ActionNoop:       h.Noop,
		keyboard.ActionCancel:     h.Cancel,
	}
	for action, handler := range public {
		b.router.RegisterAction(action, handler)
	}

	admin := map[keyboard.Action]handlers.Handler{
		keyboard.ActionPanel:      h.Panel,
		keyboard.ActionAddTitle:   h.StartAddTitle,
		keyboard.ActionAddEpisode: h.StartAddEpisode,
		keyboard.ActionBroadcast:  h.StartBroadcast,
		keyboard.ActionManage:     h.StartManage,
		keyboard.ActionSetBalance: h.SetBalanceStart,
		keyboard.ActionBan:        h.Ban,
		keyboard.ActionUnban:      h.Unban,
		keyboard.ActionStatus:     h.Status,
		keyboard.ActionSettings:   h.Settings,
		keyboard.ActionToggle:     h.Toggle,
		keyboard.ActionVIPToggle:  h.VIPToggle,
		keyboard.ActionBack:       h.Back,
	}
	for action, handler := range admin {
		b.router.RegisterAction(action, h.AdminOnly(handler))
	}
}

func (b *Bot) registerSteps() {
	h := b.handlers

	for _, step := range state.Flows[state.FlowAddTitle] {
		if step == state.StateAnimeMedia {
			continue
		}
		b.dispatcher.Handle(step, h.AdminOnly(h.AddTitleStep))
	}
	b.dispatcher.Handle(state.StateAnimeMedia, h.AdminOnly(h.AddTitleMedia))
	b.dispatcher.Handle(state.StateEpisodeWaitID, h.AdminOnly(h.EpisodeTitle))
	b.dispatcher.Handle(state.StateEpisodeWaitMedia, h.AdminOnly(h.EpisodeMedia))
	b.dispatcher.Handle(state.StateBroadcastContent, h.AdminOnly(h.BroadcastContent))
	b.dispatcher.Handle(state.StateManageTarget, h.AdminOnly(h.ManageTarget))
	b.dispatcher.Handle(state.StateManageBalance, h.AdminOnly(h.BalanceAmount))
	b.dispatcher.Handle(state.StateSearchQuery, h.SearchQuery)
}

func (b *Bot) registerTelebotHandlers() {
	route := telebot.HandlerFunc(b.router.Route)

	b.telebot.Handle(telebot.OnText, route)
	b.telebot.Handle(telebot.OnCallback, route)
	b.telebot.Handle(telebot.OnMedia, route)
}

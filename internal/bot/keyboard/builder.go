package keyboard

import (
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/domain"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/ledger"
	"github.com/Proton-105/anime-bot/internal/pagination"
	"github.com/Proton-105/anime-bot/internal/settings"
)

// Builder renders the inline keyboards of the bot in one language.
type Builder struct {
	t   i18n.Translator
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(t i18n.Translator, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{t: t, log: log}
}

func (b *Builder) text(key string) string {
	if b.t == nil {
		return key
	}
	return b.t.T(key)
}

func (b *Builder) btn(key string, action Action, data string) InlineButton {
	return InlineButton{Text: b.text(key), Action: action, Data: data}
}

func (b *Builder) build(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build inline keyboard", slog.Any("error", err))
		return &telebot.ReplyMarkup{}
	}
	return markup
}

// SearchMenu offers name search and the full listing.
func (b *Builder) SearchMenu() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.btn("buttons.search_name", ActionSearchName, "")).
		AddRow(b.btn("menu.all", ActionAll, "")))
}

// TitleList renders one button per title.
func (b *Builder) TitleList(titles []domain.Title) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, t := range titles {
		kb.AddRow(Button(t.Name, ActionTitle, t.ID))
	}
	kb.AddRow(b.btn("buttons.close", ActionClose, ""))
	return b.build(kb)
}

// Episodes renders the episode picker of a title card. Operators also get the
// VIP-only switch of the title.
func (b *Builder) Episodes(title *domain.Title, page *pagination.Page, isAdmin bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	if page != nil {
		kb = EpisodeKeyboard(b.t, title.ID, *page)
	} else {
		kb.AddRow(b.btn("buttons.close", ActionClose, ""))
	}

	if isAdmin {
		key := "buttons.vip_only_off"
		if title.VIPOnly {
			key = "buttons.vip_only_on"
		}
		kb.AddRow(b.btn(key, ActionVIPToggle, strconv.FormatInt(title.ID, 10)))
	}

	return b.build(kb)
}

// VIPShop lists the purchasable plans.
func (b *Builder) VIPShop(plans []ledger.Plan, currency string) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, p := range plans {
		kb.AddRow(InlineButton{
			Text:   fmt.Sprintf(b.text("buttons.plan"), p.Days, p.Price, currency),
			Action: ActionShop,
			Data:   strconv.Itoa(p.Days),
		})
	}
	kb.AddRow(b.btn("buttons.close", ActionClose, ""))
	return b.build(kb)
}

// VIPActive is shown under an active subscription; extend goes back to the plans.
func (b *Builder) VIPActive() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.btn("buttons.extend", ActionShop, "")).
		AddRow(b.btn("buttons.close", ActionClose, "")))
}

// AdminPanel is the operator entry point.
func (b *Builder) AdminPanel() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.btn("buttons.add_title", ActionAddTitle, ""), b.btn("buttons.add_episode", ActionAddEpisode, "")).
		AddRow(b.btn("buttons.broadcast", ActionBroadcast, ""), b.btn("buttons.manage", ActionManage, "")).
		AddRow(b.btn("buttons.status", ActionStatus, ""), b.btn("buttons.settings", ActionSettings, "")).
		AddRow(b.btn("buttons.close", ActionClose, "")))
}

// ManageUser offers moderation actions for target.
func (b *Builder) ManageUser(target int64, banned bool) *telebot.ReplyMarkup {
	id := strconv.FormatInt(target, 10)

	ban := b.btn("buttons.ban", ActionBan, id)
	if banned {
		ban = b.btn("buttons.unban", ActionUnban, id)
	}

	return b.build(NewInlineKeyboard().
		AddRow(ban, b.btn("buttons.set_balance", ActionSetBalance, id)).
		AddRow(b.btn("buttons.back", ActionBack, "")))
}

// Settings renders one switch per feature toggle.
func (b *Builder) Settings(values map[settings.Key]bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, key := range settings.Keys {
		format := b.text("buttons.toggle_off")
		if values[key] {
			format = b.text("buttons.toggle_on")
		}
		kb.AddRow(InlineButton{
			Text:   fmt.Sprintf(format, b.text("toggles."+string(key))),
			Action: ActionToggle,
			Data:   string(key),
		})
	}
	kb.AddRow(b.btn("buttons.back", ActionBack, ""))
	return b.build(kb)
}

// Back returns to the admin panel.
func (b *Builder) Back() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(b.btn("buttons.back", ActionBack, "")))
}

// Cancel is attached to prompts of single-step flows.
func (b *Builder) Cancel() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(b.btn("menu.cancel", ActionCancel, "")))
}

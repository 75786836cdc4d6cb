package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/i18n"
)

// MainMenu builds a localized reply keyboard for the bot main menu.
// Operators get an extra row with the admin panel entry.
func MainMenu(t i18n.Translator, isAdmin bool) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	lookup := func(key string) string {
		if t == nil {
			return key
		}
		return t.T(key)
	}

	rows := []telebot.Row{
		markup.Row(markup.Text(lookup("menu.search")), markup.Text(lookup("menu.all"))),
		markup.Row(markup.Text(lookup("menu.vip")), markup.Text(lookup("menu.balance"))),
		markup.Row(markup.Text(lookup("menu.help"))),
	}
	if isAdmin {
		rows = append(rows, markup.Row(markup.Text(lookup("menu.panel"))))
	}

	markup.Reply(rows...)
	return markup
}

// CancelMenu replaces the main menu while a multi-step flow is running.
func CancelMenu(t i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(markup.Row(markup.Text(translated(t, "menu.cancel", "❌"))))
	return markup
}

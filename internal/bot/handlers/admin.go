package handlers

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
)

// Panel opens the operator menu.
func (h *Handlers) Panel(c telebot.Context) error {
	ack(c)
	t := h.Translator(c)
	return c.Send(t.T("messages.admin_panel"), h.buttons(t).AdminPanel())
}

// Back returns a panel sub-view to the operator menu in place.
func (h *Handlers) Back(c telebot.Context) error {
	ack(c)
	t := h.Translator(c)
	return c.EditOrSend(t.T("messages.admin_panel"), h.buttons(t).AdminPanel())
}

// Status reports uptime, store counters and new-user growth.
func (h *Handlers) Status(c telebot.Context) error {
	ctx := RequestContext(c)

	users, err := h.Users.Count(ctx)
	if err != nil {
		return err
	}
	stats, err := h.Catalog.Stats(ctx)
	if err != nil {
		return err
	}
	admins, err := h.Admins.List(ctx)
	if err != nil {
		return err
	}
	growth, err := h.Users.Growth(ctx)
	if err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	uptime := time.Since(h.StartedAt).Truncate(time.Second)
	text := t.Format("messages.status", uptime.String(), users, stats.Titles, stats.Episodes, len(admins)) +
		"\n\n" + t.Format("messages.status_growth", growth.Today, growth.Week, growth.Month)
	return c.EditOrSend(text, h.buttons(t).Back())
}

// VIPToggle opens a title to everyone or restricts it to subscribers.
// Payload: <title id>.
func (h *Handlers) VIPToggle(c telebot.Context) error {
	t := h.Translator(c)

	titleID, err := keyboard.Int64Arg(CallbackPayload(c), 0)
	if err != nil {
		return notify(c, t.T("messages.title_not_found"))
	}

	ctx := RequestContext(c)
	title, err := h.Catalog.GetByID(ctx, titleID)
	if err != nil {
		if isNotFound(err) {
			return notify(c, t.T("messages.title_not_found"))
		}
		return err
	}

	title.VIPOnly = !title.VIPOnly
	if err := h.Catalog.SetVIPOnly(ctx, titleID, title.VIPOnly); err != nil {
		return err
	}

	key := "messages.vip_only_off"
	if title.VIPOnly {
		key = "messages.vip_only_on"
	}
	_ = c.Respond(&telebot.CallbackResponse{Text: t.Format(key, titleID)})

	page, err := h.Catalog.FirstPage(ctx, titleID)
	if err != nil {
		if isNotFound(err) {
			_, err = c.Bot().EditReplyMarkup(c.Callback(), h.buttons(t).Episodes(title, nil, true))
		}
		return err
	}
	_, err = c.Bot().EditReplyMarkup(c.Callback(), h.buttons(t).Episodes(title, &page, true))
	return err
}

// AddAdmin grants operator rights: /add_admin <user id>.
func (h *Handlers) AddAdmin(c telebot.Context) error {
	t := h.Translator(c)

	target, ok := idArg(c.Text())
	if !ok {
		return c.Send(t.Format("messages.admin_usage", "/add_admin"))
	}

	added, err := h.Admins.Add(RequestContext(c), senderID(c), target)
	if err != nil {
		return err
	}
	if !added {
		return c.Send(t.Format("messages.admin_exists", target))
	}
	return c.Send(t.Format("messages.admin_added", target))
}

// RemoveAdmin revokes operator rights: /remove_admin <user id>.
func (h *Handlers) RemoveAdmin(c telebot.Context) error {
	t := h.Translator(c)

	target, ok := idArg(c.Text())
	if !ok {
		return c.Send(t.Format("messages.admin_usage", "/remove_admin"))
	}

	removed, err := h.Admins.Remove(RequestContext(c), senderID(c), target)
	if err != nil {
		return err
	}
	if !removed {
		return c.Send(t.Format("messages.admin_missing", target))
	}
	return c.Send(t.Format("messages.admin_removed", target))
}

package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/settings"
)

// Settings lists the feature toggles in place of the admin panel.
func (h *Handlers) Settings(c telebot.Context) error {
	values, err := h.Toggles.All(RequestContext(c))
	if err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	return c.EditOrSend(t.T("messages.settings"), h.buttons(t).Settings(values))
}

// Toggle flips one feature and redraws the switches.
// Payload: <toggle key>.
func (h *Handlers) Toggle(c telebot.Context) error {
	t := h.Translator(c)

	key := settings.Key(CallbackPayload(c))
	if !key.Valid() {
		return notify(c, t.T("messages.invalid_input"))
	}

	ctx := RequestContext(c)
	if _, err := h.Toggles.Flip(ctx, key); err != nil {
		return err
	}

	values, err := h.Toggles.All(ctx)
	if err != nil {
		return err
	}

	ack(c)
	_, err = c.Bot().EditReplyMarkup(c.Callback(), h.buttons(t).Settings(values))
	return err
}

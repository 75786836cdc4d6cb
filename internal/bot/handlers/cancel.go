package handlers

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/state"
)

// Cancel drops the pending flow, whatever step it is in, and returns to the main menu.
func (h *Handlers) Cancel(c telebot.Context) error {
	if c.Sender() == nil {
		h.Log.Warn("cancel handler invoked without sender context")
		return nil
	}

	ctx := RequestContext(c)
	userID := c.Sender().ID

	pending := true
	us, err := h.FSM.GetState(ctx, userID)
	switch {
	case errors.Is(err, state.ErrStateNotFound):
		pending = false
	case err != nil:
		return err
	case us.CurrentState == state.StateIdle:
		pending = false
	}

	if err := h.FSM.ClearState(ctx, userID); err != nil {
		h.Log.Error("failed to clear user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	ack(c)

	t := h.Translator(c)
	key := "messages.cancelled"
	if !pending {
		key = "messages.nothing_to_cancel"
	}
	return h.mainMenu(c, t, t.T(key))
}

package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/state"
)

// StartBroadcast waits for the message to send to every user.
func (h *Handlers) StartBroadcast(c telebot.Context) error {
	if err := h.startFlow(c, state.FirstStep(state.FlowBroadcast), nil); err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	return c.Send(t.T("messages.broadcast_prompt"), keyboard.CancelMenu(t))
}

// BroadcastContent fans the received message out and reports the tally to the
// operator. The flow is cleared before sending starts, so the operator keeps
// using the bot while the fan-out runs.
func (h *Handlers) BroadcastContent(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	msg := c.Message()
	if err := h.Validator.Validate(state.StateBroadcastContent, inputOf(msg)); err != nil {
		return c.Send(t.T("messages.invalid_input"))
	}

	ctx := RequestContext(c)
	recipients, err := h.Users.Audience(ctx)
	if err != nil {
		return err
	}

	if err := h.FSM.ClearState(ctx, us.UserID); err != nil {
		return err
	}
	if err := h.mainMenu(c, t, t.Format("messages.broadcast_started", len(recipients))); err != nil {
		h.Log.Warn("failed to confirm broadcast start", slog.Any("error", err))
	}

	report := h.Fanout.Run(ctx, payloadOf(msg), recipients)

	h.Log.Info("broadcast finished",
		slog.Int64("admin_id", us.UserID),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
	return c.Send(t.Format("messages.broadcast_done", report.Succeeded, report.Failed))
}

package handlers

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/state"
)

// StartManage asks which user to moderate.
func (h *Handlers) StartManage(c telebot.Context) error {
	if err := h.startFlow(c, state.FirstStep(state.FlowManageUser), nil); err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	return c.Send(t.T("messages.manage_prompt"), h.buttons(t).Cancel())
}

// ManageTarget shows the chosen user with the moderation actions.
func (h *Handlers) ManageTarget(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	in := inputOf(c.Message())
	if err := h.Validator.Validate(state.StateManageTarget, in); err != nil {
		return c.Send(t.T("messages.invalid_input"), h.buttons(t).Cancel())
	}

	target, _ := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	ctx := RequestContext(c)
	if _, err := h.Users.Find(ctx, target); err != nil {
		if isNotFound(err) {
			return c.Send(t.T("messages.user_not_found"), h.buttons(t).Cancel())
		}
		return err
	}

	if err := h.FSM.ClearState(ctx, us.UserID); err != nil {
		return err
	}
	return h.showUser(c, t, target)
}

// SetBalanceStart asks for the new balance of the user in the payload.
// Payload: <user id>.
func (h *Handlers) SetBalanceStart(c telebot.Context) error {
	t := h.Translator(c)

	target, err := keyboard.Int64Arg(CallbackPayload(c), 0)
	if err != nil {
		return notify(c, t.T("messages.user_not_found"))
	}

	fields := map[string]string{state.FieldTargetID: strconv.FormatInt(target, 10)}
	if err := h.startFlow(c, state.FirstStep(state.FlowSetBalance), fields); err != nil {
		return err
	}

	ack(c)
	return c.Send(t.Format("messages.balance_prompt", target), h.buttons(t).Cancel())
}

// BalanceAmount overwrites the balance of the user being managed.
func (h *Handlers) BalanceAmount(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	in := inputOf(c.Message())
	if err := h.Validator.Validate(state.StateManageBalance, in); err != nil {
		return c.Send(t.T("messages.invalid_input"), h.buttons(t).Cancel())
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil {
		return c.Send(t.T("messages.invalid_input"), h.buttons(t).Cancel())
	}
	target, err := us.Int64Field(state.FieldTargetID)
	if err != nil {
		return apperrors.NewStateError("target id missing")
	}

	ctx := RequestContext(c)
	if err := h.Ledger.SetBalance(ctx, us.UserID, target, amount); err != nil {
		return err
	}

	if err := h.FSM.ClearState(ctx, us.UserID); err != nil {
		return err
	}
	return c.Send(t.Format("messages.balance_set", target, amount, h.Currency))
}

// Ban blocks the user in the payload. Payload: <user id>.
func (h *Handlers) Ban(c telebot.Context) error {
	return h.setBanned(c, true)
}

// Unban lifts the block of the user in the payload. Payload: <user id>.
func (h *Handlers) Unban(c telebot.Context) error {
	return h.setBanned(c, false)
}

func (h *Handlers) setBanned(c telebot.Context, banned bool) error {
	t := h.Translator(c)

	target, err := keyboard.Int64Arg(CallbackPayload(c), 0)
	if err != nil {
		return notify(c, t.T("messages.user_not_found"))
	}

	ctx := RequestContext(c)
	key := "messages.unban_ok"
	if banned {
		key = "messages.ban_ok"
		err = h.Ledger.Ban(ctx, senderID(c), target)
	} else {
		err = h.Ledger.Unban(ctx, senderID(c), target)
	}
	if err != nil {
		return err
	}

	_ = c.Respond(&telebot.CallbackResponse{Text: t.Format(key, target)})
	_, err = c.Bot().EditReplyMarkup(c.Callback(), h.buttons(t).ManageUser(target, banned))
	return err
}

func (h *Handlers) showUser(c telebot.Context, t i18n.Translator, target int64) error {
	ctx := RequestContext(c)

	u, err := h.Users.Find(ctx, target)
	if err != nil {
		return err
	}
	bal, err := h.Ledger.Balance(ctx, target)
	if err != nil {
		return err
	}

	banned := t.T("common.no")
	if bal.Banned {
		banned = t.T("common.yes")
	}

	return c.Send(
		t.Format("messages.manage_user", target, t.T("status."+string(u.Status)), bal.Amount, h.Currency, banned),
		h.buttons(t).ManageUser(target, bal.Banned),
	)
}

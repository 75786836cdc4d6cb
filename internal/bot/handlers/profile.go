package handlers

import (
	"strconv"

	"github.com/samber/lo"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/domain"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/ledger"
)

// Balance shows the spendable amount and the subscription tier of the sender.
func (h *Handlers) Balance(c telebot.Context) error {
	bal, err := h.Ledger.Balance(RequestContext(c), senderID(c))
	if err != nil {
		return err
	}

	status := domain.StatusPlain
	if u := CurrentUser(c); u != nil && u.Status != "" {
		status = u.Status
	}

	ack(c)
	t := h.Translator(c)
	return c.Send(t.Format("messages.balance", bal.Amount, h.Currency, t.T("status."+string(status))))
}

// VIP shows the expiry of an active subscription, or the plans to buy one.
func (h *Handlers) VIP(c telebot.Context) error {
	t := h.Translator(c)

	view, err := h.Ledger.VIPStatus(RequestContext(c), CurrentUser(c))
	if err != nil {
		return err
	}

	ack(c)
	if view.Active {
		return c.Send(t.Format("messages.vip_active", dateString(view.ExpiresOn)), h.buttons(t).VIPActive())
	}
	return h.showShop(c, t)
}

// Shop buys the plan named by the payload. An empty payload shows the plans.
// Payload: <days>.
func (h *Handlers) Shop(c telebot.Context) error {
	t := h.Translator(c)

	data := CallbackPayload(c)
	if data == "" {
		ack(c)
		return h.showShop(c, t)
	}

	days, err := strconv.Atoi(data)
	offered := lo.ContainsBy(h.Ledger.Plans(), func(p ledger.Plan) bool { return p.Days == days })
	if err != nil || !offered {
		return notify(c, t.T("messages.invalid_input"))
	}

	ctx := RequestContext(c)
	userID := senderID(c)
	result, err := h.Ledger.Purchase(ctx, userID, days)
	if err != nil {
		return err
	}

	ack(c)
	if result.Outcome == ledger.OutcomeInsufficientFunds {
		bal, err := h.Ledger.Balance(ctx, userID)
		if err != nil {
			return err
		}
		return c.Send(t.Format("messages.insufficient_funds", result.Price, h.Currency, bal.Amount, h.Currency))
	}

	if u := CurrentUser(c); u != nil {
		u.Status = domain.StatusVIP
	}
	return c.Send(t.Format("messages.purchase_ok", dateString(result.Subscription.ExpiresOn())))
}

func (h *Handlers) showShop(c telebot.Context, t i18n.Translator) error {
	bal, err := h.Ledger.Balance(RequestContext(c), senderID(c))
	if err != nil {
		return err
	}
	return c.Send(
		t.Format("messages.vip_menu", bal.Amount, h.Currency),
		h.buttons(t).VIPShop(h.Ledger.Plans(), h.Currency),
	)
}

package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// Start greets the user with the main menu. Any pending flow is dropped.
func (h *Handlers) Start(c telebot.Context) error {
	if c.Sender() == nil {
		h.Log.Warn("start handler invoked without sender")
		return nil
	}

	if err := h.FSM.ClearState(RequestContext(c), c.Sender().ID); err != nil {
		return err
	}

	t := h.Translator(c)
	return h.mainMenu(c, t, t.Format("messages.start", c.Sender().FirstName))
}

// Help explains the menu.
func (h *Handlers) Help(c telebot.Context) error {
	ack(c)
	t := h.Translator(c)
	return h.mainMenu(c, t, t.T("messages.help"))
}

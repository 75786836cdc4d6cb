package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/state"
)

// SearchMenu offers the search modes.
func (h *Handlers) SearchMenu(c telebot.Context) error {
	ack(c)
	t := h.Translator(c)
	return c.Send(t.T("messages.search_menu"), h.buttons(t).SearchMenu())
}

// SearchByName waits for the name to search for.
func (h *Handlers) SearchByName(c telebot.Context) error {
	if err := h.startFlow(c, state.FirstStep(state.FlowSearch), nil); err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	return c.Send(t.T("messages.search_prompt"), h.buttons(t).Cancel())
}

// SearchQuery is the step that receives the name.
func (h *Handlers) SearchQuery(c telebot.Context) error {
	t := h.Translator(c)
	in := inputOf(c.Message())
	if err := h.Validator.Validate(state.StateSearchQuery, in); err != nil {
		return c.Send(t.T("messages.invalid_input"), h.buttons(t).Cancel())
	}

	if err := h.FSM.ClearState(RequestContext(c), senderID(c)); err != nil {
		return err
	}
	return h.search(c, in.Text)
}

// Search treats free text outside any flow as a title name.
func (h *Handlers) Search(c telebot.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return nil
	}
	return h.search(c, text)
}

func (h *Handlers) search(c telebot.Context, text string) error {
	text = strings.TrimSpace(text)
	titles, err := h.Catalog.FindByName(RequestContext(c), text)
	if err != nil {
		return err
	}

	t := h.Translator(c)
	if len(titles) == 0 {
		return c.Send(t.Format("messages.search_empty", text))
	}
	return c.Send(t.Format("messages.search_results", len(titles)), h.buttons(t).TitleList(titles))
}

// All lists the catalog by name.
func (h *Handlers) All(c telebot.Context) error {
	titles, err := h.Catalog.FindByName(RequestContext(c), "")
	if err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	if len(titles) == 0 {
		return c.Send(t.T("messages.catalog_empty"))
	}
	return c.Send(t.T("messages.all_titles"), h.buttons(t).TitleList(titles))
}

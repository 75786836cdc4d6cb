package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// InlineButton is one callback button: its label and the action it triggers.
type InlineButton struct {
	Text   string
	Action Action
	Data   string
}

// Button builds an InlineButton whose payload is args joined by Join.
func Button(text string, action Action, args ...any) InlineButton {
	return InlineButton{Text: text, Action: action, Data: Join(args...)}
}

// InlineKeyboardBuilder collects button rows; empty rows are dropped.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{}
}

// AddRow appends buttons as one row.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, append([]InlineButton(nil), buttons...))
	}
	return b
}

func (b *InlineKeyboardBuilder) Rows() int {
	return len(b.rows)
}

// Build encodes every button. A payload that does not fit the callback data
// limit fails the whole keyboard.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	markup := &telebot.ReplyMarkup{InlineKeyboard: make([][]telebot.InlineButton, 0, len(b.rows))}

	for _, row := range b.rows {
		out := make([]telebot.InlineButton, 0, len(row))
		for _, btn := range row {
			data, err := EncodeCallback(btn.Action, btn.Data)
			if err != nil {
				return nil, fmt.Errorf("button %q: %w", btn.Text, err)
			}
			out = append(out, telebot.InlineButton{Text: btn.Text, Data: data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, out)
	}

	return markup, nil
}

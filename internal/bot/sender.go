package bot

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/broadcast"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

// Sender delivers broadcast payloads through the Telegram API.
type Sender struct {
	bot *telebot.Bot
}

// NewSender returns a broadcast.Sender bound to b.
func NewSender(b *telebot.Bot) *Sender {
	return &Sender{bot: b}
}

// Send delivers p to one chat. Media is sent by file id, so nothing is uploaded.
func (s *Sender) Send(ctx context.Context, recipient int64, p broadcast.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var what any
	switch p.Kind {
	case broadcast.KindPhoto:
		what = &telebot.Photo{File: telebot.File{FileID: p.FileID}, Caption: p.Text}
	case broadcast.KindVideo:
		what = &telebot.Video{File: telebot.File{FileID: p.FileID}, Caption: p.Text}
	case broadcast.KindAnimation:
		what = &telebot.Animation{File: telebot.File{FileID: p.FileID}, Caption: p.Text}
	case broadcast.KindDocument:
		what = &telebot.Document{File: telebot.File{FileID: p.FileID}, Caption: p.Text}
	default:
		what = p.Text
	}

	if _, err := s.bot.Send(telebot.ChatID(recipient), what); err != nil {
		return apperrors.NewTransportError("broadcast send", err)
	}
	return nil
}

// Notify sends a plain text message to one user.
func (s *Sender) Notify(ctx context.Context, userID int64, text string) error {
	return s.Send(ctx, userID, broadcast.Payload{Kind: broadcast.KindText, Text: text})
}

package handlers

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/broadcast"
	"github.com/Proton-105/anime-bot/internal/state"
)

// inputOf extracts what a conversation step validates from an incoming message.
func inputOf(msg *telebot.Message) state.Input {
	if msg == nil {
		return state.Input{}
	}

	in := state.Input{Text: msg.Text}
	switch {
	case msg.Photo != nil:
		in.Media = state.MediaPhoto
	case msg.Video != nil:
		in.Media = state.MediaVideo
		in.Duration = msg.Video.Duration
	case msg.Animation != nil:
		in.Media = state.MediaAnimation
	case msg.Document != nil:
		in.Media = state.MediaDocument
	}
	if in.Media != state.MediaNone {
		in.Text = msg.Caption
	}
	return in
}

// payloadOf picks the richest single media of msg, in the order photo, video,
// animation, document, and falls back to plain text.
func payloadOf(msg *telebot.Message) broadcast.Payload {
	if msg == nil {
		return broadcast.Payload{}
	}

	switch {
	case msg.Photo != nil:
		return broadcast.Payload{Kind: broadcast.KindPhoto, FileID: msg.Photo.FileID, Text: msg.Caption}
	case msg.Video != nil:
		return broadcast.Payload{Kind: broadcast.KindVideo, FileID: msg.Video.FileID, Text: msg.Caption}
	case msg.Animation != nil:
		return broadcast.Payload{Kind: broadcast.KindAnimation, FileID: msg.Animation.FileID, Text: msg.Caption}
	case msg.Document != nil:
		return broadcast.Payload{Kind: broadcast.KindDocument, FileID: msg.Document.FileID, Text: msg.Caption}
	default:
		return broadcast.Payload{Kind: broadcast.KindText, Text: msg.Text}
	}
}

// commandArg returns the first argument of a slash command.
func commandArg(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// idArg parses the first argument of a slash command as a user id.
func idArg(text string) (int64, bool) {
	id, err := strconv.ParseInt(commandArg(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

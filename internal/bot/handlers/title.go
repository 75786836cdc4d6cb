package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/domain"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/pagination"
	"github.com/Proton-105/anime-bot/internal/settings"
	"github.com/Proton-105/anime-bot/pkg/metrics"
)

// TitleCard shows a title with its artwork and the first page of episodes.
// Payload: <title id>.
func (h *Handlers) TitleCard(c telebot.Context) error {
	t := h.Translator(c)
	data := CallbackPayload(c)

	titleID, err := keyboard.Int64Arg(data, 0)
	if err != nil {
		return notify(c, t.T("messages.title_not_found"))
	}

	ctx := RequestContext(c)
	title, err := h.Catalog.View(ctx, titleID)
	if err != nil {
		if isNotFound(err) {
			return notify(c, t.T("messages.title_not_found"))
		}
		return err
	}
	metrics.RecordTitleView()

	var page *pagination.Page
	first, err := h.Catalog.FirstPage(ctx, titleID)
	switch {
	case err == nil:
		page = &first
	case !isNotFound(err):
		return err
	}

	caption := titleCaption(t, title)
	if page == nil {
		caption += "\n\n" + t.T("messages.no_episodes")
	}
	markup := h.buttons(t).Episodes(title, page, h.IsAdmin(c))

	ack(c)

	var artwork any
	switch title.Media.Kind {
	case domain.MediaVideo:
		artwork = &telebot.Video{File: telebot.File{FileID: title.Media.FileID}, Caption: caption}
	case domain.MediaPhoto:
		artwork = &telebot.Photo{File: telebot.File{FileID: title.Media.FileID}, Caption: caption}
	}

	if artwork != nil {
		err := c.Send(artwork, markup)
		if err == nil {
			return nil
		}
		h.Log.Warn("failed to send title artwork, falling back to text",
			slog.Int64("title_id", title.ID),
			slog.Any("error", err),
		)
	}

	return c.Send(caption, markup)
}

// Episode delivers one episode, gated by the VIP flag of its title.
// Payload: <title id>:<episode number>.
func (h *Handlers) Episode(c telebot.Context) error {
	t := h.Translator(c)
	data := CallbackPayload(c)

	titleID, err1 := keyboard.Int64Arg(data, 0)
	number, err2 := keyboard.Int64Arg(data, 1)
	if err1 != nil || err2 != nil {
		return notify(c, t.T("messages.episode_not_found"))
	}

	ctx := RequestContext(c)
	title, err := h.Catalog.GetByID(ctx, titleID)
	if err != nil {
		if isNotFound(err) {
			return notify(c, t.T("messages.title_not_found"))
		}
		return err
	}

	if !h.Ledger.CanWatch(CurrentUser(c), title) {
		ack(c)
		if err := c.Send(t.T("messages.vip_required")); err != nil {
			return err
		}
		return h.showShop(c, t)
	}

	ep, err := h.Catalog.GetEpisode(ctx, titleID, int(number))
	if err != nil {
		if isNotFound(err) {
			return notify(c, t.T("messages.episode_not_found"))
		}
		return err
	}

	page, err := h.Catalog.EpisodePage(ctx, titleID, ep.Number)
	if err != nil {
		return err
	}

	ack(c)

	caption := t.Format("messages.episode_caption", title.Name, ep.Number)
	opts := &telebot.SendOptions{
		ReplyMarkup: h.buttons(t).Episodes(title, &page, h.IsAdmin(c)),
		Protected:   h.Toggles.Enabled(ctx, settings.ProtectContent),
	}

	video := &telebot.Video{File: telebot.File{FileID: ep.FileID}, Caption: caption}
	if err := c.Send(video, opts); err != nil {
		h.Log.Warn("failed to send episode, falling back to text",
			slog.Int64("title_id", title.ID),
			slog.Int("episode", ep.Number),
			slog.Any("error", err),
		)
		return c.Send(caption, opts)
	}
	return nil
}

// Page moves the episode picker one page back or forward in place.
// Payload: <title id>:<selected episode>:<next|back>.
func (h *Handlers) Page(c telebot.Context) error {
	t := h.Translator(c)
	data := CallbackPayload(c)

	titleID, err1 := keyboard.Int64Arg(data, 0)
	selected, err2 := keyboard.Int64Arg(data, 1)
	dirArg, err3 := keyboard.StringArg(data, 2)
	if err1 != nil || err2 != nil || err3 != nil {
		return notify(c, t.T("messages.episode_not_found"))
	}

	dir := pagination.Next
	if dirArg == keyboard.DirBack {
		dir = pagination.Back
	}

	ctx := RequestContext(c)
	title, err := h.Catalog.GetByID(ctx, titleID)
	if err != nil {
		if isNotFound(err) {
			return notify(c, t.T("messages.title_not_found"))
		}
		return err
	}

	page, err := h.Catalog.TurnPage(ctx, titleID, int(selected), dir)
	if err != nil {
		if isNotFound(err) {
			return notify(c, t.T("messages.episode_not_found"))
		}
		return err
	}

	ack(c)
	_, err = c.Bot().EditReplyMarkup(c.Callback(), h.buttons(t).Episodes(title, &page, h.IsAdmin(c)))
	return err
}

// Close removes the message the button belongs to.
func (h *Handlers) Close(c telebot.Context) error {
	ack(c)
	if err := c.Delete(); err != nil {
		h.Log.Debug("failed to delete message", slog.Any("error", err))
	}
	return nil
}

// Noop answers buttons that only display state, like the selected episode.
func (h *Handlers) Noop(c telebot.Context) error {
	ack(c)
	return nil
}

func titleCaption(t i18n.Translator, title *domain.Title) string {
	dub := title.DubSource
	if dub == "" {
		dub = t.T("common.none")
	}
	return t.Format("messages.title_card",
		title.Name,
		title.EpisodeCount,
		title.Country,
		title.Language,
		title.ReleaseYear,
		title.Genres,
		dub,
		title.HitCount,
	)
}

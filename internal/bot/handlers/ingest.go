package handlers

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/state"
)

// noDub is typed at the dub step when a title has no dub credit.
const noDub = "-"

// titleFields names the value each add-title text step collects.
var titleFields = map[state.State]string{
	state.StateAnimeName:     state.FieldName,
	state.StateAnimeEpisodes: state.FieldEpisodes,
	state.StateAnimeCountry:  state.FieldCountry,
	state.StateAnimeLanguage: state.FieldLanguage,
	state.StateAnimeYear:     state.FieldYear,
	state.StateAnimeGenre:    state.FieldGenre,
	state.StateAnimeDub:      state.FieldDub,
}

var titlePrompts = map[state.State]string{
	state.StateAnimeName:     "messages.prompt_name",
	state.StateAnimeEpisodes: "messages.prompt_episodes",
	state.StateAnimeCountry:  "messages.prompt_country",
	state.StateAnimeLanguage: "messages.prompt_language",
	state.StateAnimeYear:     "messages.prompt_year",
	state.StateAnimeGenre:    "messages.prompt_genre",
	state.StateAnimeDub:      "messages.prompt_dub",
}

// StartAddTitle enters the add-title wizard.
func (h *Handlers) StartAddTitle(c telebot.Context) error {
	first := state.FirstStep(state.FlowAddTitle)
	if err := h.startFlow(c, first, nil); err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	return c.Send(h.titlePrompt(t, first), keyboard.CancelMenu(t))
}

// AddTitleStep stores one text answer of the wizard and asks the next question.
func (h *Handlers) AddTitleStep(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	in := inputOf(c.Message())
	if err := h.Validator.Validate(us.CurrentState, in); err != nil {
		return c.Send(t.T("messages.invalid_input"))
	}

	field, ok := titleFields[us.CurrentState]
	if !ok {
		return apperrors.NewStateError("no field for step " + string(us.CurrentState))
	}
	next, ok := state.NextStep(us.CurrentState)
	if !ok {
		return apperrors.NewStateError("step " + string(us.CurrentState) + " is terminal")
	}

	value := strings.TrimSpace(in.Text)
	if us.CurrentState == state.StateAnimeDub && value == noDub {
		value = ""
	}

	if err := h.FSM.TransitionTo(RequestContext(c), us.UserID, next, map[string]string{field: value}); err != nil {
		return err
	}
	return c.Send(h.titlePrompt(t, next))
}

// AddTitleMedia takes the artwork and stores the title. The wizard stays on
// this step when the insert fails, so the operator can resend the media.
func (h *Handlers) AddTitleMedia(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	msg := c.Message()
	if err := h.Validator.Validate(state.StateAnimeMedia, inputOf(msg)); err != nil {
		return c.Send(h.titlePrompt(t, state.StateAnimeMedia))
	}

	media := domain.MediaRef{Kind: domain.MediaPhoto}
	if msg.Video != nil {
		media = domain.MediaRef{Kind: domain.MediaVideo, FileID: msg.Video.FileID}
	} else {
		media.FileID = msg.Photo.FileID
	}

	episodes, err := us.IntField(state.FieldEpisodes)
	if err != nil {
		return apperrors.NewStateError("episode count missing")
	}
	year, err := us.IntField(state.FieldYear)
	if err != nil {
		return apperrors.NewStateError("release year missing")
	}

	ctx := RequestContext(c)
	id, err := h.Catalog.AddTitle(ctx, domain.NewTitle{
		Name:         us.Field(state.FieldName),
		Media:        media,
		EpisodeCount: episodes,
		Country:      us.Field(state.FieldCountry),
		Language:     us.Field(state.FieldLanguage),
		ReleaseYear:  year,
		Genres:       us.Field(state.FieldGenre),
		DubSource:    us.Field(state.FieldDub),
	})
	if err != nil {
		return err
	}

	if err := h.FSM.ClearState(ctx, us.UserID); err != nil {
		return err
	}
	return h.mainMenu(c, t, t.Format("messages.title_added", id))
}

// StartAddEpisode enters the add-episode flow.
func (h *Handlers) StartAddEpisode(c telebot.Context) error {
	if err := h.startFlow(c, state.FirstStep(state.FlowAddEpisode), nil); err != nil {
		return err
	}

	ack(c)
	t := h.Translator(c)
	return c.Send(t.T("messages.prompt_title_id"), keyboard.CancelMenu(t))
}

// EpisodeTitle picks the title the next episode belongs to.
func (h *Handlers) EpisodeTitle(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	in := inputOf(c.Message())
	if err := h.Validator.Validate(state.StateEpisodeWaitID, in); err != nil {
		return c.Send(t.T("messages.invalid_input"))
	}

	titleID, _ := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	ctx := RequestContext(c)
	title, err := h.Catalog.GetByID(ctx, titleID)
	if err != nil {
		if isNotFound(err) {
			return c.Send(t.T("messages.title_not_found"))
		}
		return err
	}

	fields := map[string]string{
		state.FieldTitleID: strconv.FormatInt(title.ID, 10),
		state.FieldName:    title.Name,
	}
	if err := h.FSM.TransitionTo(ctx, us.UserID, state.StateEpisodeWaitMedia, fields); err != nil {
		return err
	}
	return c.Send(t.Format("messages.prompt_episode_media", title.Name))
}

// EpisodeMedia stores the video as the next episode of the chosen title.
func (h *Handlers) EpisodeMedia(c telebot.Context) error {
	us := CurrentState(c)
	if us == nil {
		return nil
	}

	t := h.Translator(c)
	msg := c.Message()
	if err := h.Validator.Validate(state.StateEpisodeWaitMedia, inputOf(msg)); err != nil {
		return c.Send(t.Format("messages.prompt_episode_media", us.Field(state.FieldName)))
	}

	titleID, err := us.Int64Field(state.FieldTitleID)
	if err != nil {
		return apperrors.NewStateError("title id missing")
	}

	ctx := RequestContext(c)
	number, err := h.Catalog.AddEpisode(ctx, titleID, msg.Video.FileID)
	if err != nil {
		return err
	}

	if err := h.FSM.ClearState(ctx, us.UserID); err != nil {
		return err
	}
	return h.mainMenu(c, t, t.Format("messages.episode_added", number, us.Field(state.FieldName)))
}

func (h *Handlers) titlePrompt(t i18n.Translator, step state.State) string {
	if step == state.StateAnimeMedia {
		return t.Format("messages.prompt_media", h.Validator.MaxClipSeconds)
	}
	return t.T(titlePrompts[step])
}

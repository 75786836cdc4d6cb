package state

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

// MediaKind is the kind of attachment carried by an incoming message.
type MediaKind string

const (
	MediaNone      MediaKind = ""
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAnimation MediaKind = "animation"
	MediaDocument  MediaKind = "document"
)

// Input is the part of an incoming message a step validates.
type Input struct {
	Text     string
	Media    MediaKind
	Duration int
}

// Validator checks step input before it is stored. Failures never mutate state.
type Validator struct {
	// MaxClipSeconds bounds the duration of a video used as title artwork.
	MaxClipSeconds int
}

// rule holds the validator tags applied to the text and the media kind of a
// step's input. An empty tag skips that part.
type rule struct {
	text  string
	media string
	msg   string
}

const (
	textRule    = "required"
	countRule   = "required,number,fits_int64"
	idRule      = "required,number,fits_int64,positive_id"
	noMediaRule = "isdefault"
)

var stepRules = map[State]rule{
	StateAnimeName:     {text: textRule, media: noMediaRule, msg: "text is required"},
	StateAnimeCountry:  {text: textRule, media: noMediaRule, msg: "text is required"},
	StateAnimeLanguage: {text: textRule, media: noMediaRule, msg: "text is required"},
	StateAnimeGenre:    {text: textRule, media: noMediaRule, msg: "text is required"},
	StateAnimeDub:      {text: textRule, media: noMediaRule, msg: "text is required"},
	StateSearchQuery:   {text: textRule, media: noMediaRule, msg: "text is required"},

	StateAnimeEpisodes: {text: countRule, msg: "a non-negative number is required"},
	StateAnimeYear:     {text: countRule, msg: "a non-negative number is required"},
	StateManageBalance: {text: countRule, msg: "a non-negative number is required"},

	StateEpisodeWaitID: {text: idRule, msg: "a positive id is required"},
	StateManageTarget:  {text: idRule, msg: "a positive id is required"},

	StateAnimeMedia:       {media: "oneof=photo video", msg: "a photo or a short video is required"},
	StateEpisodeWaitMedia: {media: "eq=video", msg: "a video is required"},
}

// broadcastContent needs at least one of its parts.
type broadcastContent struct {
	Text  string    `validate:"required_without=Media"`
	Media MediaKind `validate:"required_without=Text"`
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	custom := map[string]validator.Func{
		"fits_int64": func(fl validator.FieldLevel) bool {
			_, err := strconv.ParseInt(fl.Field().String(), 10, 64)
			return err == nil
		},
		"positive_id": func(fl validator.FieldLevel) bool {
			n, err := strconv.ParseInt(fl.Field().String(), 10, 64)
			return err == nil && n > 0
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("state: register " + tag + ": " + err.Error())
		}
	}

	return v
}

// Validate returns a validation AppError when in is not acceptable for step.
func (v Validator) Validate(step State, in Input) error {
	text := strings.TrimSpace(in.Text)

	if step == StateBroadcastContent {
		if err := validate.Struct(broadcastContent{Text: text, Media: in.Media}); err != nil {
			return apperrors.NewValidationError("message is empty")
		}
		return nil
	}

	r, ok := stepRules[step]
	if !ok {
		return apperrors.NewStateError("unknown step " + string(step))
	}

	if r.media != "" {
		if err := validate.Var(string(in.Media), r.media); err != nil {
			return apperrors.NewValidationError(r.msg)
		}
	}
	if r.text != "" {
		if err := validate.Var(text, r.text); err != nil {
			return apperrors.NewValidationError(r.msg)
		}
	}

	if step == StateAnimeMedia && in.Media == MediaVideo && v.MaxClipSeconds > 0 {
		if err := validate.Var(in.Duration, "lte="+strconv.Itoa(v.MaxClipSeconds)); err != nil {
			return apperrors.NewValidationError("video is too long")
		}
	}

	return nil
}

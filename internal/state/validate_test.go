package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

func TestValidator_Validate(t *testing.T) {
	v := Validator{MaxClipSeconds: 60}

	testCases := []struct {
		name  string
		step  State
		input Input
		ok    bool
	}{
		{"name text", StateAnimeName, Input{Text: "Bleach"}, true},
		{"name blank", StateAnimeName, Input{Text: "   "}, false},
		{"name with photo", StateAnimeName, Input{Text: "x", Media: MediaPhoto}, false},
		{"episodes zero", StateAnimeEpisodes, Input{Text: "0"}, true},
		{"episodes negative", StateAnimeEpisodes, Input{Text: "-1"}, false},
		{"year letters", StateAnimeYear, Input{Text: "20x4"}, false},
		{"year decimal", StateAnimeYear, Input{Text: "2004.5"}, false},
		{"year signed", StateAnimeYear, Input{Text: "+2004"}, false},
		{"year padded", StateAnimeYear, Input{Text: " 2004 "}, true},
		{"episodes empty", StateAnimeEpisodes, Input{}, false},
		{"title id zero", StateEpisodeWaitID, Input{Text: "0"}, false},
		{"title id positive", StateEpisodeWaitID, Input{Text: "17"}, true},
		{"target id", StateManageTarget, Input{Text: "123456"}, true},
		{"target id overflow", StateManageTarget, Input{Text: "9223372036854775808"}, false},
		{"balance amount", StateManageBalance, Input{Text: "5000"}, true},
		{"balance overflow", StateManageBalance, Input{Text: "99999999999999999999"}, false},
		{"media photo", StateAnimeMedia, Input{Media: MediaPhoto}, true},
		{"media short video", StateAnimeMedia, Input{Media: MediaVideo, Duration: 60}, true},
		{"media long video", StateAnimeMedia, Input{Media: MediaVideo, Duration: 61}, false},
		{"media document", StateAnimeMedia, Input{Media: MediaDocument}, false},
		{"media text only", StateAnimeMedia, Input{Text: "cover"}, false},
		{"episode video", StateEpisodeWaitMedia, Input{Media: MediaVideo, Duration: 1400}, true},
		{"episode photo", StateEpisodeWaitMedia, Input{Media: MediaPhoto}, false},
		{"broadcast text", StateBroadcastContent, Input{Text: "hello"}, true},
		{"broadcast document", StateBroadcastContent, Input{Media: MediaDocument}, true},
		{"broadcast empty", StateBroadcastContent, Input{}, false},
		{"broadcast blank text", StateBroadcastContent, Input{Text: "  "}, false},
		{"search query", StateSearchQuery, Input{Text: "one"}, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.step, tc.input)
			if tc.ok {
				assert.NoError(t, err)
				return
			}

			var appErr *apperrors.AppError
			if assert.True(t, errors.As(err, &appErr)) {
				assert.Equal(t, apperrors.CodeValidation, appErr.Code)
			}
		})
	}
}

func TestValidator_UnboundedClip(t *testing.T) {
	err := Validator{}.Validate(StateAnimeMedia, Input{Media: MediaVideo, Duration: 3600})
	assert.NoError(t, err)
}

func TestValidator_UnknownStep(t *testing.T) {
	err := Validator{}.Validate(State("nowhere"), Input{Text: "x"})

	var appErr *apperrors.AppError
	if assert.True(t, errors.As(err, &appErr)) {
		assert.Equal(t, apperrors.CodeState, appErr.Code)
	}
}

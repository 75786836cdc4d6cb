package keyboard

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/Proton-105/anime-bot/internal/i18n"
	"github.com/Proton-105/anime-bot/internal/pagination"
)

// EpisodesPerRow is the number of episode buttons in one keyboard row.
const EpisodesPerRow = 4

// EpisodeButtons lays out one page of episode buttons. The selected episode is
// rendered as "[n]" and bound to the no-op action.
func EpisodeButtons(titleID int64, page pagination.Page) []InlineButton {
	return lo.Map(page.Shown, func(n int, _ int) InlineButton {
		if n == page.Selected {
			return InlineButton{Text: "[" + strconv.Itoa(n) + "]", Action: ActionNoop}
		}
		return Button(strconv.Itoa(n), ActionEpisode, titleID, n)
	})
}

// PaginationButtons returns the navigation row for the page.
func PaginationButtons(t i18n.Translator, titleID int64, page pagination.Page) []InlineButton {
	nav := make([]InlineButton, 0, 3)

	if page.HasPrev {
		nav = append(nav, InlineButton{
			Text:   translated(t, "buttons.prev", "◀️"),
			Action: ActionPage,
			Data:   Join(titleID, page.Selected, DirBack),
		})
	}

	nav = append(nav, InlineButton{
		Text:   translated(t, "buttons.close", "✖️"),
		Action: ActionClose,
	})

	if page.HasNext {
		nav = append(nav, InlineButton{
			Text:   translated(t, "buttons.next", "▶️"),
			Action: ActionPage,
			Data:   Join(titleID, page.Selected, DirNext),
		})
	}

	return nav
}

// EpisodeKeyboard renders the full episode picker for page: rows of
// EpisodesPerRow buttons followed by the navigation row.
func EpisodeKeyboard(t i18n.Translator, titleID int64, page pagination.Page) *InlineKeyboardBuilder {
	kb := NewInlineKeyboard()
	for _, row := range lo.Chunk(EpisodeButtons(titleID, page), EpisodesPerRow) {
		kb.AddRow(row...)
	}
	kb.AddRow(PaginationButtons(t, titleID, page)...)
	return kb
}

func translated(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}

	text := t.T(key)
	if text == "" || text == key {
		return fallback
	}

	return text
}

package keyboard_test

import (
	"testing"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/pagination"
	"github.com/Proton-105/anime-bot/internal/testutil"
)

type mockTranslator struct {
	translations map[string]string
	lang         string
}

func (m *mockTranslator) T(key string) string {
	if val, ok := m.translations[key]; ok {
		return val
	}
	return key
}

func (m *mockTranslator) Format(key string, args ...any) string {
	return m.T(key)
}

func (m *mockTranslator) Lang() string {
	if m.lang == "" {
		return "en"
	}
	return m.lang
}

// episodes 1..30 with 13 missing
func gappedEpisodes() []int {
	all := make([]int, 0, 29)
	for n := 1; n <= 30; n++ {
		if n == 13 {
			continue
		}
		all = append(all, n)
	}
	return all
}

func TestEpisodeKeyboard(t *testing.T) {
	translator := &mockTranslator{
		translations: map[string]string{
			"buttons.prev":  "◀️",
			"buttons.next":  "▶️",
			"buttons.close": "Close",
		},
	}

	t.Run("first page", func(t *testing.T) {
		page, err := pagination.Compute(gappedEpisodes(), 5, pagination.DefaultPageSize)
		testutil.AssertNoError(t, err)

		markup, err := keyboard.EpisodeKeyboard(translator, 9, page).Build()
		testutil.AssertNoError(t, err)

		rows := markup.InlineKeyboard
		testutil.AssertEqual(t, 8, len(rows))
		testutil.AssertEqual(t, 4, len(rows[0]))
		testutil.AssertEqual(t, 1, len(rows[6]))
		testutil.AssertEqual(t, "ep:9:1", rows[0][0].Data)
		testutil.AssertEqual(t, "[5]", rows[1][0].Text)
		testutil.AssertEqual(t, "noop", rows[1][0].Data)
		testutil.AssertEqual(t, "14", rows[3][0].Text)
		testutil.AssertEqual(t, "26", rows[6][0].Text)

		nav := rows[7]
		testutil.AssertEqual(t, 2, len(nav))
		testutil.AssertEqual(t, "close", nav[0].Data)
		testutil.AssertEqual(t, "▶️", nav[1].Text)
		testutil.AssertEqual(t, "page:9:5:next", nav[1].Data)
	})

	t.Run("last page", func(t *testing.T) {
		page, err := pagination.Compute(gappedEpisodes(), 27, pagination.DefaultPageSize)
		testutil.AssertNoError(t, err)

		markup, err := keyboard.EpisodeKeyboard(translator, 9, page).Build()
		testutil.AssertNoError(t, err)

		rows := markup.InlineKeyboard
		testutil.AssertEqual(t, 2, len(rows))
		testutil.AssertEqual(t, "[27]", rows[0][0].Text)
		testutil.AssertEqual(t, "ep:9:30", rows[0][3].Data)

		nav := rows[1]
		testutil.AssertEqual(t, 2, len(nav))
		testutil.AssertEqual(t, "page:9:27:back", nav[0].Data)
		testutil.AssertEqual(t, "Close", nav[1].Text)
	})

	t.Run("single page without translator", func(t *testing.T) {
		page, err := pagination.Compute([]int{1, 2}, 2, pagination.DefaultPageSize)
		testutil.AssertNoError(t, err)

		nav := keyboard.PaginationButtons(nil, 3, page)
		testutil.AssertEqual(t, 1, len(nav))
		testutil.AssertEqual(t, keyboard.ActionClose, nav[0].Action)
		testutil.AssertEqual(t, "✖️", nav[0].Text)
	})
}

package keyboard_test

import (
	"testing"

	"github.com/Proton-105/anime-bot/internal/bot/keyboard"
	"github.com/Proton-105/anime-bot/internal/testutil"
)

func TestMainMenu(t *testing.T) {
	translator := &mockTranslator{
		translations: map[string]string{
			"menu.search":  "Search",
			"menu.all":     "All",
			"menu.vip":     "VIP",
			"menu.balance": "Balance",
			"menu.help":    "Help",
			"menu.panel":   "Panel",
		},
	}

	testCases := []struct {
		name     string
		isAdmin  bool
		wantRows [][]string
	}{
		{
			name:     "regular user",
			wantRows: [][]string{{"Search", "All"}, {"VIP", "Balance"}, {"Help"}},
		},
		{
			name:     "admin",
			isAdmin:  true,
			wantRows: [][]string{{"Search", "All"}, {"VIP", "Balance"}, {"Help"}, {"Panel"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			markup := keyboard.MainMenu(translator, tc.isAdmin)

			if !markup.ResizeKeyboard {
				t.Fatalf("expected ResizeKeyboard to be true")
			}

			testutil.AssertEqual(t, len(tc.wantRows), len(markup.ReplyKeyboard))
			for i, row := range tc.wantRows {
				testutil.AssertEqual(t, len(row), len(markup.ReplyKeyboard[i]))
				for j, text := range row {
					testutil.AssertEqual(t, text, markup.ReplyKeyboard[i][j].Text)
				}
			}
		})
	}
}

func TestCancelMenu(t *testing.T) {
	markup := keyboard.CancelMenu(&mockTranslator{translations: map[string]string{"menu.cancel": "Cancel"}})
	testutil.AssertEqual(t, 1, len(markup.ReplyKeyboard))
	testutil.AssertEqual(t, "Cancel", markup.ReplyKeyboard[0][0].Text)
}

package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/anime-bot/internal/domain"
	"github.com/Proton-105/anime-bot/internal/settings"
	"github.com/Proton-105/anime-bot/internal/state"
	"github.com/Proton-105/anime-bot/internal/testutil"
)

func TestAddTitleWizard(t *testing.T) {
	tb := newTestBot(t)

	tb.press(adminID, "add_title")
	tb.text(adminID, "Naruto")
	tb.text(adminID, "many")
	assert.Equal(t, tb.en.T("messages.invalid_input"), tb.tg.LastText())

	us, err := tb.fsm.GetState(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, state.StateAnimeEpisodes, us.CurrentState)

	for _, answer := range []string{"220", "Japan", "Japanese", "2002", "Action", "-"} {
		tb.text(adminID, answer)
	}
	tb.route(testutil.PhotoUpdate(tb.updateID(), adminID, "art-1", ""))

	assert.Equal(t, tb.en.Format("messages.title_added", int64(1)), tb.tg.LastText())

	title := tb.store.Title(1)
	require.NotNil(t, title)
	assert.Equal(t, "Naruto", title.Name)
	assert.Equal(t, 220, title.EpisodeCount)
	assert.Equal(t, 2002, title.ReleaseYear)
	assert.Equal(t, "", title.DubSource)
	assert.Equal(t, domain.MediaRef{Kind: domain.MediaPhoto, FileID: "art-1"}, title.Media)

	_, err = tb.fsm.GetState(context.Background(), adminID)
	assert.ErrorIs(t, err, state.ErrStateNotFound)
}

func TestAddTitleRejectsLongClips(t *testing.T) {
	tb := newTestBot(t)

	tb.press(adminID, "add_title")
	for _, answer := range []string{"Naruto", "220", "Japan", "Japanese", "2002", "Action", "-"} {
		tb.text(adminID, answer)
	}
	tb.route(testutil.VideoUpdate(tb.updateID(), adminID, "clip-1", 600))

	assert.Nil(t, tb.store.Title(1))
	us, err := tb.fsm.GetState(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, state.StateAnimeMedia, us.CurrentState)
}

func TestAddEpisodeFlow(t *testing.T) {
	tb := newTestBot(t)
	titleID := tb.store.AddTitle(domain.Title{Name: "Naruto"}, 2)

	tb.text(adminID, "/add_episode")
	tb.text(adminID, "99")
	assert.Equal(t, tb.en.T("messages.title_not_found"), tb.tg.LastText())

	tb.text(adminID, "1")
	tb.route(testutil.VideoUpdate(tb.updateID(), adminID, "ep-3", 1400))

	assert.Equal(t, tb.en.Format("messages.episode_added", 3, "Naruto"), tb.tg.LastText())
	assert.Equal(t, []int{1, 2, 3}, tb.store.EpisodeNumbers(titleID))
}

func TestBroadcastReportsTally(t *testing.T) {
	tb := newTestBot(t)
	for _, id := range []int64{100, 101, 102} {
		tb.store.AddUser(id, 0)
	}
	tb.tg.FailChat(101)

	tb.text(adminID, "/broadcast")
	tb.text(adminID, "new season is out")

	// the operator registered on first contact and is part of the audience
	assert.Equal(t, tb.en.Format("messages.broadcast_done", 3, 1), tb.tg.LastText())

	delivered := 0
	for _, c := range tb.tg.CallsTo("sendMessage") {
		if c.Param("text") == "new season is out" {
			delivered++
		}
	}
	assert.Equal(t, 4, delivered)

	_, err := tb.fsm.GetState(context.Background(), adminID)
	assert.ErrorIs(t, err, state.ErrStateNotFound)
}

func TestManageUser(t *testing.T) {
	tb := newTestBot(t)
	tb.store.AddUser(100, 0)

	tb.press(adminID, "manage")
	tb.text(adminID, "555")
	assert.Equal(t, tb.en.T("messages.user_not_found"), tb.tg.LastText())

	tb.text(adminID, "100")
	want := tb.en.Format("messages.manage_user", int64(100), tb.en.T("status.plain"), int64(0), "so'm", tb.en.T("common.no"))
	assert.Equal(t, want, tb.tg.LastText())

	tb.press(adminID, "setbal:100")
	tb.text(adminID, "750")
	assert.Equal(t, tb.en.Format("messages.balance_set", int64(100), int64(750), "so'm"), tb.tg.LastText())
	assert.Equal(t, int64(750), tb.store.Balance(100).Amount)

	tb.press(adminID, "ban:100")
	assert.True(t, tb.store.Balance(100).Banned)
	assert.Contains(t, tb.alerts(), tb.en.Format("messages.ban_ok", int64(100)))

	tb.text(100, "/help")
	assert.Equal(t, tb.en.T("messages.banned"), tb.tg.LastText())

	tb.press(adminID, "unban:100")
	assert.False(t, tb.store.Balance(100).Banned)
}

func TestToggleFlipsFeature(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.press(adminID, "toggle:maintenance")
	assert.True(t, tb.toggles.Enabled(ctx, settings.Maintenance))

	tb.press(adminID, "toggle:protect_content")
	assert.False(t, tb.toggles.Enabled(ctx, settings.ProtectContent))

	tb.press(adminID, "toggle:bogus")
	assert.Contains(t, tb.alerts(), tb.en.T("messages.invalid_input"))
}

func TestVIPToggleRestrictsTitle(t *testing.T) {
	tb := newTestBot(t)
	titleID := tb.store.AddTitle(domain.Title{Name: "Naruto"}, 2)

	tb.press(adminID, "vip_toggle:1")
	assert.True(t, tb.store.Title(titleID).VIPOnly)

	tb.press(adminID, "vip_toggle:1")
	assert.False(t, tb.store.Title(titleID).VIPOnly)
}

func TestAdminGrantAndRevoke(t *testing.T) {
	tb := newTestBot(t)

	tb.text(adminID, "/add_admin")
	assert.Equal(t, tb.en.Format("messages.admin_usage", "/add_admin"), tb.tg.LastText())

	tb.text(adminID, "/add_admin 50")
	assert.Equal(t, tb.en.Format("messages.admin_added", int64(50)), tb.tg.LastText())

	tb.text(50, "/panel")
	assert.Equal(t, tb.en.T("messages.admin_panel"), tb.tg.LastText())

	tb.text(adminID, "/remove_admin 50")
	assert.Equal(t, tb.en.Format("messages.admin_removed", int64(50)), tb.tg.LastText())

	tb.text(50, "/panel")
	assert.Equal(t, tb.en.T("messages.not_admin"), tb.tg.LastText())

	tb.text(adminID, "/remove_admin 1")
	assert.Equal(t, tb.en.T("errors.permission"), tb.tg.LastText())
}

func TestStatusReportsNewUsers(t *testing.T) {
	tb := newTestBot(t)
	tb.store.AddUser(100, 0)
	tb.store.AddUserJoined(101, 0, time.Now().AddDate(0, 0, -40))
	tb.store.AddTitle(domain.Title{Name: "Naruto"}, 3)

	tb.press(adminID, "status")

	text := tb.tg.LastText()
	assert.Contains(t, text, "Users: 3\nAnime: 1\nEpisodes: 3")
	assert.Contains(t, text, tb.en.Format("messages.status_growth", int64(2), int64(2), int64(2)))
}

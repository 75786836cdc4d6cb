package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/pagination"
)

func newTestService() (*Service, *fakeTitles, *fakeEpisodes) {
	titles := newFakeTitles()
	episodes := newFakeEpisodes(titles)
	return NewService(titles, episodes, testLogger(), Options{}), titles, episodes
}

func addTitle(t *testing.T, svc *Service, name string) int64 {
	t.Helper()
	id, err := svc.AddTitle(context.Background(), domain.NewTitle{
		Name:  name,
		Media: domain.MediaRef{Kind: domain.MediaPhoto, FileID: "photo-" + name},
	})
	require.NoError(t, err)
	return id
}

func TestFindByName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	addTitle(t, svc, "One Piece")
	addTitle(t, svc, "One Punch Man")
	addTitle(t, svc, "Naruto")

	found, err := svc.FindByName(ctx, "ONE")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "One Piece", found[0].Name)

	found, err = svc.FindByName(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = svc.FindByName(ctx, "bleach")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindByNameLimits(t *testing.T) {
	svc, _, _ := newTestService()
	for i := 0; i < 60; i++ {
		addTitle(t, svc, fmt.Sprintf("Title %02d", i))
	}

	found, err := svc.FindByName(context.Background(), "title")
	require.NoError(t, err)
	assert.Len(t, found, DefaultSearchLimit)

	found, err = svc.FindByName(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, found, DefaultBrowseLimit)
	assert.Equal(t, "Title 00", found[0].Name)
}

func TestAddTitleValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AddTitle(context.Background(), domain.NewTitle{Name: " ", Media: domain.MediaRef{Kind: domain.MediaVideo, FileID: "v"}})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = svc.AddTitle(context.Background(), domain.NewTitle{Name: "x"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestViewCountsEveryConcurrentView(t *testing.T) {
	svc, _, _ := newTestService()
	id := addTitle(t, svc, "Bleach")

	const views = 50
	var wg sync.WaitGroup
	for i := 0; i < views; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.View(context.Background(), id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	title, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(views), title.HitCount)
}

func TestViewMissingTitle(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.View(context.Background(), 404)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestAddEpisodeNumbersAreUniqueAndIncreasing(t *testing.T) {
	svc, _, _ := newTestService()
	id := addTitle(t, svc, "Naruto")

	const adds = 40
	numbers := make(chan int, adds)
	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := svc.AddEpisode(context.Background(), id, fmt.Sprintf("file-%d", i))
			assert.NoError(t, err)
			numbers <- n
		}(i)
	}
	wg.Wait()
	close(numbers)

	var got []int
	for n := range numbers {
		got = append(got, n)
	}
	sort.Ints(got)
	for i, n := range got {
		assert.Equal(t, i+1, n)
	}
}

func TestAddEpisodeRetriesConflicts(t *testing.T) {
	svc, _, episodes := newTestService()
	id := addTitle(t, svc, "Bleach")

	episodes.conflicts = 2
	episodes.conflict = apperrors.NewConflictError(errors.New("duplicate key"))

	n, err := svc.AddEpisode(context.Background(), id, "file")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddEpisodeUnknownTitle(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AddEpisode(context.Background(), 77, "file")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestEpisodePagesWithGap(t *testing.T) {
	svc, _, episodes := newTestService()
	ctx := context.Background()
	id := addTitle(t, svc, "Gintama")

	for i := 0; i < 40; i++ {
		_, err := svc.AddEpisode(ctx, id, fmt.Sprintf("f%d", i))
		require.NoError(t, err)
	}
	episodes.remove(id, 13)

	page, err := svc.FirstPage(ctx, id)
	require.NoError(t, err)
	assert.Len(t, page.Shown, pagination.DefaultPageSize)
	assert.NotContains(t, page.Shown, 13)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)

	next, err := svc.TurnPage(ctx, id, page.Selected, pagination.Next)
	require.NoError(t, err)
	assert.Equal(t, 27, next.Shown[0])
	assert.False(t, next.HasNext)
	assert.True(t, next.HasPrev)

	_, err = svc.EpisodePage(ctx, id, 13)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFirstPageWithoutEpisodes(t *testing.T) {
	svc, _, _ := newTestService()
	id := addTitle(t, svc, "Empty")

	_, err := svc.FirstPage(context.Background(), id)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id := addTitle(t, svc, "A")
	addTitle(t, svc, "B")
	_, err := svc.AddEpisode(ctx, id, "x")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Titles)
	assert.Equal(t, int64(1), stats.Episodes)
}

func TestSetVIPOnly(t *testing.T) {
	svc, _, _ := newTestService()
	id := addTitle(t, svc, "Paid")

	require.NoError(t, svc.SetVIPOnly(context.Background(), id, true))
	title, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, title.VIPOnly)

	assert.True(t, errors.Is(svc.SetVIPOnly(context.Background(), 999, true), apperrors.ErrNotFound))
}

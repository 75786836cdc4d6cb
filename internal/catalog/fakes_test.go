package catalog

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Proton-105/anime-bot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTitles struct {
	mu     sync.Mutex
	nextID int64
	titles map[int64]*domain.Title
}

func newFakeTitles() *fakeTitles {
	return &fakeTitles{titles: make(map[int64]*domain.Title)}
}

func (f *fakeTitles) Search(_ context.Context, query string, limit int) ([]domain.Title, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Title
	for _, t := range f.titles {
		if query == "" || strings.Contains(strings.ToLower(t.Name), strings.ToLower(query)) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTitles) FindByID(_ context.Context, id int64) (*domain.Title, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.titles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTitles) View(_ context.Context, id int64) (*domain.Title, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.titles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	t.HitCount++
	cp := *t
	return &cp, nil
}

func (f *fakeTitles) IncrementHitCount(ctx context.Context, id int64) error {
	_, err := f.View(ctx, id)
	return err
}

func (f *fakeTitles) Create(_ context.Context, nt domain.NewTitle) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.titles[f.nextID] = &domain.Title{
		ID:           f.nextID,
		Name:         nt.Name,
		Media:        nt.Media,
		EpisodeCount: nt.EpisodeCount,
		Country:      nt.Country,
		Language:     nt.Language,
		ReleaseYear:  nt.ReleaseYear,
		Genres:       nt.Genres,
		DubSource:    nt.DubSource,
	}
	return f.nextID, nil
}

func (f *fakeTitles) SetVIPOnly(_ context.Context, id int64, vipOnly bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.titles[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.VIPOnly = vipOnly
	return nil
}

func (f *fakeTitles) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.titles)), nil
}

// fakeEpisodes mirrors the per-title counter of the SQL store.
type fakeEpisodes struct {
	mu       sync.Mutex
	titles   *fakeTitles
	counters map[int64]int
	episodes map[int64]map[int]string
	// conflicts makes the next n Add calls fail with a retryable conflict.
	conflicts int
	conflict  error
}

func newFakeEpisodes(titles *fakeTitles) *fakeEpisodes {
	return &fakeEpisodes{
		titles:   titles,
		counters: make(map[int64]int),
		episodes: make(map[int64]map[int]string),
	}
}

func (f *fakeEpisodes) Add(ctx context.Context, titleID int64, fileID string) (int, error) {
	if _, err := f.titles.FindByID(ctx, titleID); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflicts > 0 {
		f.conflicts--
		return 0, f.conflict
	}

	f.counters[titleID]++
	n := f.counters[titleID]
	if f.episodes[titleID] == nil {
		f.episodes[titleID] = make(map[int]string)
	}
	f.episodes[titleID][n] = fileID
	return n, nil
}

func (f *fakeEpisodes) ListNumbers(_ context.Context, titleID int64) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	numbers := make([]int, 0, len(f.episodes[titleID]))
	for n := range f.episodes[titleID] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (f *fakeEpisodes) Find(_ context.Context, titleID int64, number int) (*domain.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fileID, ok := f.episodes[titleID][number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &domain.Episode{TitleID: titleID, Number: number, FileID: fileID}, nil
}

func (f *fakeEpisodes) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, eps := range f.episodes {
		n += int64(len(eps))
	}
	return n, nil
}

// remove deletes an episode so tests can produce gaps in numbering.
func (f *fakeEpisodes) remove(titleID int64, number int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.episodes[titleID], number)
}

// Package catalog serves titles and episodes: search, title cards, episode pages and ingestion.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/pagination"
	"github.com/Proton-105/anime-bot/internal/repository"
)

const (
	DefaultSearchLimit = 10
	DefaultBrowseLimit = 50
)

// addEpisodeBackoff retries the numbering race between concurrent ingestions.
var addEpisodeBackoff = apperrors.Backoff{Retries: 3, Base: 50 * time.Millisecond, Max: time.Second}

// Options tunes result sizes. Zero values fall back to the package defaults.
type Options struct {
	SearchLimit int
	BrowseLimit int
	PageSize    int
}

// Service provides catalog operations. It never caches: every read hits the store.
type Service struct {
	titles   repository.TitleRepository
	episodes repository.EpisodeRepository
	log      *slog.Logger
	opts     Options
}

// NewService constructs a catalog Service.
func NewService(titles repository.TitleRepository, episodes repository.EpisodeRepository, log *slog.Logger, opts Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.BrowseLimit <= 0 {
		opts.BrowseLimit = DefaultBrowseLimit
	}
	if opts.PageSize <= 0 {
		opts.PageSize = pagination.DefaultPageSize
	}

	return &Service{titles: titles, episodes: episodes, log: log, opts: opts}
}

// FindByName returns titles whose name contains text, case-insensitively.
// Empty text lists the first titles by name with the larger browse limit.
func (s *Service) FindByName(ctx context.Context, text string) ([]domain.Title, error) {
	text = strings.TrimSpace(text)

	limit := s.opts.SearchLimit
	if text == "" {
		limit = s.opts.BrowseLimit
	}

	titles, err := s.titles.Search(ctx, text, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	return titles, nil
}

// GetByID returns a title without counting a view.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Title, error) {
	title, err := s.titles.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("title", err)
	}
	return title, nil
}

// View returns a title and counts the view in the same atomic statement.
func (s *Service) View(ctx context.Context, id int64) (*domain.Title, error) {
	title, err := s.titles.View(ctx, id)
	if err != nil {
		return nil, mapStoreError("title", err)
	}
	return title, nil
}

func (s *Service) IncrementHitCounter(ctx context.Context, id int64) error {
	if err := s.titles.IncrementHitCount(ctx, id); err != nil {
		return mapStoreError("title", err)
	}
	return nil
}

// AddTitle stores a new title and returns its id.
func (s *Service) AddTitle(ctx context.Context, title domain.NewTitle) (int64, error) {
	title.Name = strings.TrimSpace(title.Name)
	if title.Name == "" {
		return 0, apperrors.NewValidationError("title name is empty")
	}
	if title.Media.String() == "" {
		return 0, apperrors.NewValidationError("title media is missing")
	}
	if title.EpisodeCount < 0 || title.ReleaseYear < 0 {
		return 0, apperrors.NewValidationError("numbers must not be negative")
	}

	id, err := s.titles.Create(ctx, title)
	if err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}

	s.log.Info("title added", slog.Int64("title_id", id), slog.String("name", title.Name))
	return id, nil
}

// AddEpisode stores fileID as the next episode of titleID. Numbers are unique per
// title and strictly increase even when two ingestions race.
func (s *Service) AddEpisode(ctx context.Context, titleID int64, fileID string) (int, error) {
	if fileID == "" {
		return 0, apperrors.NewValidationError("episode media is missing")
	}

	var number int
	err := apperrors.Retry(ctx, addEpisodeBackoff, func() error {
		n, err := s.episodes.Add(ctx, titleID, fileID)
		if err != nil {
			return err
		}
		number = n
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NewNotFoundError(fmt.Sprintf("title %d", titleID))
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, apperrors.NewDatabaseError(err)
	}

	return number, nil
}

// ListEpisodeNumbers returns the episode numbers of a title in ascending order.
func (s *Service) ListEpisodeNumbers(ctx context.Context, titleID int64) ([]int, error) {
	numbers, err := s.episodes.ListNumbers(ctx, titleID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return numbers, nil
}

func (s *Service) GetEpisode(ctx context.Context, titleID int64, number int) (*domain.Episode, error) {
	ep, err := s.episodes.Find(ctx, titleID, number)
	if err != nil {
		return nil, mapStoreError("episode", err)
	}
	return ep, nil
}

// EpisodePage returns the page of the title's episodes that contains current.
// A title without episodes yields a NotFound error.
func (s *Service) EpisodePage(ctx context.Context, titleID int64, current int) (pagination.Page, error) {
	numbers, err := s.ListEpisodeNumbers(ctx, titleID)
	if err != nil {
		return pagination.Page{}, err
	}

	page, err := pagination.Compute(numbers, current, s.opts.PageSize)
	if err != nil {
		return pagination.Page{}, apperrors.NewNotFoundError(fmt.Sprintf("episode %d of title %d", current, titleID))
	}

	return page, nil
}

// FirstPage returns the page holding the first episode of the title.
func (s *Service) FirstPage(ctx context.Context, titleID int64) (pagination.Page, error) {
	numbers, err := s.ListEpisodeNumbers(ctx, titleID)
	if err != nil {
		return pagination.Page{}, err
	}
	if len(numbers) == 0 {
		return pagination.Page{}, apperrors.NewNotFoundError(fmt.Sprintf("episodes of title %d", titleID))
	}

	page, err := pagination.Compute(numbers, numbers[0], s.opts.PageSize)
	if err != nil {
		return pagination.Page{}, apperrors.NewNotFoundError("episode page")
	}
	return page, nil
}

// TurnPage moves a whole page from current and returns the page of the episode it lands on.
func (s *Service) TurnPage(ctx context.Context, titleID int64, current int, dir pagination.Direction) (pagination.Page, error) {
	numbers, err := s.ListEpisodeNumbers(ctx, titleID)
	if err != nil {
		return pagination.Page{}, err
	}

	target, err := pagination.Advance(numbers, current, dir, s.opts.PageSize)
	if err != nil {
		return pagination.Page{}, apperrors.NewNotFoundError(fmt.Sprintf("episode %d of title %d", current, titleID))
	}

	page, err := pagination.Compute(numbers, target, s.opts.PageSize)
	if err != nil {
		return pagination.Page{}, apperrors.NewNotFoundError("episode page")
	}
	return page, nil
}

// SetVIPOnly restricts or opens a title's episodes to the paid tier.
func (s *Service) SetVIPOnly(ctx context.Context, titleID int64, vipOnly bool) error {
	if err := s.titles.SetVIPOnly(ctx, titleID, vipOnly); err != nil {
		return mapStoreError("title", err)
	}
	return nil
}

// Stats counts titles and episodes.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	titles, err := s.titles.Count(ctx)
	if err != nil {
		return domain.Stats{}, apperrors.NewDatabaseError(err)
	}
	episodes, err := s.episodes.Count(ctx)
	if err != nil {
		return domain.Stats{}, apperrors.NewDatabaseError(err)
	}
	return domain.Stats{Titles: titles, Episodes: episodes}, nil
}

func mapStoreError(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(what)
	}
	return apperrors.NewDatabaseError(err)
}

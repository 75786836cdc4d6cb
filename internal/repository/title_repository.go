package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/anime-bot/internal/domain"
)

// TitleRepository defines persistence operations for catalog titles.
type TitleRepository interface {
	// Search returns up to limit titles whose name contains query, ordered by name.
	// An empty query matches every title.
	Search(ctx context.Context, query string, limit int) ([]domain.Title, error)
	FindByID(ctx context.Context, id int64) (*domain.Title, error)
	// View increments the hit counter and returns the updated title in one statement.
	View(ctx context.Context, id int64) (*domain.Title, error)
	IncrementHitCount(ctx context.Context, id int64) error
	Create(ctx context.Context, title domain.NewTitle) (int64, error)
	SetVIPOnly(ctx context.Context, id int64, vipOnly bool) error
	Count(ctx context.Context) (int64, error)
}

type titleRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewTitleRepository creates a new SQL-backed title repository.
func NewTitleRepository(db *sql.DB, log *slog.Logger) TitleRepository {
	return &titleRepository{db: db, log: log}
}

const titleColumns = `id, name, media_ref, episode_count, country, language, release_year, genres,
		COALESCE(dub_source, ''), hit_count, vip_only, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTitle(row rowScanner) (*domain.Title, error) {
	var (
		title    domain.Title
		mediaRef string
	)
	if err := row.Scan(
		&title.ID,
		&title.Name,
		&mediaRef,
		&title.EpisodeCount,
		&title.Country,
		&title.Language,
		&title.ReleaseYear,
		&title.Genres,
		&title.DubSource,
		&title.HitCount,
		&title.VIPOnly,
		&title.CreatedAt,
	); err != nil {
		return nil, err
	}

	media, err := domain.ParseMediaRef(mediaRef)
	if err != nil {
		return nil, fmt.Errorf("title %d: %w", title.ID, err)
	}
	title.Media = media

	return &title, nil
}

func (r *titleRepository) Search(ctx context.Context, query string, limit int) ([]domain.Title, error) {
	const byName = `SELECT ` + titleColumns + ` FROM titles WHERE name ILIKE $1 ORDER BY name, id LIMIT $2`
	const all = `SELECT ` + titleColumns + ` FROM titles ORDER BY name, id LIMIT $1`

	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = r.db.QueryContext(ctx, all, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, byName, containsPattern(query), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.Title
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			if r.log != nil {
				r.log.Warn("skipping unreadable title", slog.Any("error", err))
			}
			continue
		}
		titles = append(titles, *title)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}

	return titles, nil
}

// FindByID returns sql.ErrNoRows when the title does not exist.
func (r *titleRepository) FindByID(ctx context.Context, id int64) (*domain.Title, error) {
	const query = `SELECT ` + titleColumns + ` FROM titles WHERE id = $1`

	title, err := scanTitle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select title: %w", err)
	}

	return title, nil
}

func (r *titleRepository) View(ctx context.Context, id int64) (*domain.Title, error) {
	const query = `UPDATE titles SET hit_count = hit_count + 1 WHERE id = $1 RETURNING ` + titleColumns

	title, err := scanTitle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("view title: %w", err)
	}

	return title, nil
}

func (r *titleRepository) IncrementHitCount(ctx context.Context, id int64) error {
	const query = `UPDATE titles SET hit_count = hit_count + 1 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment hit count: %w", err)
	}

	return expectOneRow(res)
}

func (r *titleRepository) Create(ctx context.Context, title domain.NewTitle) (int64, error) {
	const query = `
		INSERT INTO titles (name, media_ref, episode_count, country, language, release_year, genres, dub_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRowContext(
		ctx,
		query,
		title.Name,
		title.Media.String(),
		title.EpisodeCount,
		title.Country,
		title.Language,
		title.ReleaseYear,
		title.Genres,
		title.DubSource,
	).Scan(&id); err != nil {
		if r.log != nil {
			r.log.Error("failed to insert title", slog.String("name", title.Name), slog.Any("error", err))
		}
		return 0, fmt.Errorf("insert title: %w", err)
	}

	return id, nil
}

func (r *titleRepository) SetVIPOnly(ctx context.Context, id int64, vipOnly bool) error {
	const query = `UPDATE titles SET vip_only = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, vipOnly)
	if err != nil {
		return fmt.Errorf("set vip only: %w", err)
	}

	return expectOneRow(res)
}

func (r *titleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count titles: %w", err)
	}
	return n, nil
}

// expectOneRow maps an update that touched nothing to sql.ErrNoRows.
func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

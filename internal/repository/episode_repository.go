package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

// EpisodeRepository defines persistence operations for episodes.
type EpisodeRepository interface {
	// Add stores fileID as the next episode of titleID and returns its number.
	// Numbers come from a per-title counter advanced in the same transaction.
	Add(ctx context.Context, titleID int64, fileID string) (int, error)
	// ListNumbers returns the episode numbers of a title in ascending order.
	ListNumbers(ctx context.Context, titleID int64) ([]int, error)
	Find(ctx context.Context, titleID int64, number int) (*domain.Episode, error)
	Count(ctx context.Context) (int64, error)
}

type episodeRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewEpisodeRepository creates a new SQL-backed episode repository.
func NewEpisodeRepository(db *sql.DB, log *slog.Logger) EpisodeRepository {
	return &episodeRepository{db: db, log: log}
}

func (r *episodeRepository) Add(ctx context.Context, titleID int64, fileID string) (int, error) {
	const nextNumber = `
		UPDATE titles
		SET last_episode_number = GREATEST(
			last_episode_number,
			(SELECT COALESCE(MAX(number), 0) FROM episodes WHERE title_id = $1)
		) + 1
		WHERE id = $1
		RETURNING last_episode_number
	`
	const insert = `INSERT INTO episodes (title_id, number, media_ref) VALUES ($1, $2, $3)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin add episode: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var number int
	if err := tx.QueryRowContext(ctx, nextNumber, titleID).Scan(&number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("advance episode counter: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insert, titleID, number, fileID); err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.NewConflictError(fmt.Errorf("episode %d of title %d: %w", number, titleID, err))
		}
		return 0, fmt.Errorf("insert episode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add episode: %w", err)
	}

	if r.log != nil {
		r.log.Info("episode stored", slog.Int64("title_id", titleID), slog.Int("number", number))
	}

	return number, nil
}

func (r *episodeRepository) ListNumbers(ctx context.Context, titleID int64) ([]int, error) {
	const query = `SELECT number FROM episodes WHERE title_id = $1 ORDER BY number`

	rows, err := r.db.QueryContext(ctx, query, titleID)
	if err != nil {
		return nil, fmt.Errorf("list episode numbers: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan episode number: %w", err)
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episode numbers: %w", err)
	}

	return numbers, nil
}

// Find returns sql.ErrNoRows when the episode does not exist.
func (r *episodeRepository) Find(ctx context.Context, titleID int64, number int) (*domain.Episode, error) {
	const query = `
		SELECT id, title_id, number, media_ref, created_at
		FROM episodes
		WHERE title_id = $1 AND number = $2
	`

	var ep domain.Episode
	if err := r.db.QueryRowContext(ctx, query, titleID, number).Scan(
		&ep.ID,
		&ep.TitleID,
		&ep.Number,
		&ep.FileID,
		&ep.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select episode: %w", err)
	}

	return &ep, nil
}

func (r *episodeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}
	return n, nil
}

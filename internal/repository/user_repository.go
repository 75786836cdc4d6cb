package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/anime-bot/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// Create inserts the user together with an empty balance row. It reports
	// false when the user already existed.
	Create(ctx context.Context, user *domain.User) (bool, error)
	UpdateLastActiveAt(ctx context.Context, id int64) error
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	// CountSince counts users registered at or after since.
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByID retrieves a user by platform identifier. A missing user yields sql.ErrNoRows.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
		SELECT id, subscription_status, referral_id, created_at, last_active_at
		FROM users
		WHERE id = $1
	`

	var (
		user     domain.User
		status   string
		referral sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&status,
		&referral,
		&user.CreatedAt,
		&user.LastActiveAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		if r.log != nil {
			r.log.Error("failed to fetch user", slog.Int64("user_id", id), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	user.Status = domain.SubscriptionStatus(status)
	if referral.Valid {
		ref := referral.Int64
		user.ReferralID = &ref
	}

	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (bool, error) {
	const insertUser = `
		INSERT INTO users (id, subscription_status, referral_id, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
	`
	const insertBalance = `
		INSERT INTO balances (user_id, amount, banned)
		VALUES ($1, 0, FALSE)
		ON CONFLICT (user_id) DO NOTHING
	`

	status := user.Status
	if status == "" {
		status = domain.StatusPlain
	}

	var referral sql.NullInt64
	if user.ReferralID != nil {
		referral = sql.NullInt64{Int64: *user.ReferralID, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertUser, user.ID, string(status), referral, user.CreatedAt)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to create user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
		return false, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertBalance, user.ID); err != nil {
		return false, fmt.Errorf("insert balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit create user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create user rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *userRepository) UpdateLastActiveAt(ctx context.Context, id int64) error {
	const query = `UPDATE users SET last_active_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("update last active: %w", err)
	}

	return nil
}

// ListIDs returns every user id in ascending order.
func (r *userRepository) ListIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT id FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}

	return ids, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *userRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE created_at >= $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users since: %w", err)
	}
	return n, nil
}

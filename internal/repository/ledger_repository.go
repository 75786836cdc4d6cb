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

// LedgerRepository defines persistence operations for balances and subscriptions.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID int64) (*domain.Balance, error)
	Credit(ctx context.Context, userID, amount int64) (int64, error)
	SetBalance(ctx context.Context, userID, amount int64) error
	SetBanned(ctx context.Context, userID int64, banned bool) error
	GetSubscription(ctx context.Context, userID int64) (*domain.Subscription, error)
	// Purchase debits price, extends the subscription by days and marks the
	// user as vip in one transaction. A short balance fails with
	// ErrInsufficientFunds and changes nothing.
	Purchase(ctx context.Context, userID, price int64, days int) (*domain.Subscription, error)
	// ExpireSubscriptions removes ended subscriptions and downgrades their users.
	ExpireSubscriptions(ctx context.Context) ([]int64, error)
}

type ledgerRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewLedgerRepository creates a new SQL-backed ledger repository.
func NewLedgerRepository(db *sql.DB, log *slog.Logger) LedgerRepository {
	return &ledgerRepository{db: db, log: log}
}

// GetBalance returns sql.ErrNoRows when the user has no balance row.
func (r *ledgerRepository) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	const query = `SELECT user_id, amount, banned FROM balances WHERE user_id = $1`

	var b domain.Balance
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&b.UserID, &b.Amount, &b.Banned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select balance: %w", err)
	}

	return &b, nil
}

func (r *ledgerRepository) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	const query = `UPDATE balances SET amount = amount + $2 WHERE user_id = $1 RETURNING amount`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("credit balance: %w", err)
	}

	return total, nil
}

func (r *ledgerRepository) SetBalance(ctx context.Context, userID, amount int64) error {
	const query = `UPDATE balances SET amount = $2 WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	return expectOneRow(res)
}

func (r *ledgerRepository) SetBanned(ctx context.Context, userID int64, banned bool) error {
	const query = `UPDATE balances SET banned = $2 WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, banned)
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}

	return expectOneRow(res)
}

// GetSubscription returns sql.ErrNoRows when the user never subscribed or the subscription was swept.
func (r *ledgerRepository) GetSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	const query = `SELECT user_id, remaining_days, activated_on FROM subscriptions WHERE user_id = $1`

	var s domain.Subscription
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.RemainingDays, &s.ActivatedOn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select subscription: %w", err)
	}

	return &s, nil
}

func (r *ledgerRepository) Purchase(ctx context.Context, userID, price int64, days int) (*domain.Subscription, error) {
	const debit = `UPDATE balances SET amount = amount - $2 WHERE user_id = $1 AND amount >= $2`
	const available = `SELECT amount FROM balances WHERE user_id = $1`
	// An ended but not yet swept subscription restarts today instead of being extended.
	const extend = `
		INSERT INTO subscriptions (user_id, remaining_days, activated_on)
		VALUES ($1, $2, CURRENT_DATE)
		ON CONFLICT (user_id) DO UPDATE SET
			remaining_days = CASE
				WHEN subscriptions.activated_on + subscriptions.remaining_days < CURRENT_DATE
					THEN EXCLUDED.remaining_days
				ELSE subscriptions.remaining_days + EXCLUDED.remaining_days
			END,
			activated_on = CASE
				WHEN subscriptions.activated_on + subscriptions.remaining_days < CURRENT_DATE
					THEN EXCLUDED.activated_on
				ELSE subscriptions.activated_on
			END
		RETURNING user_id, remaining_days, activated_on
	`
	const promote = `UPDATE users SET subscription_status = 'vip' WHERE id = $1`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, debit, userID, price)
	if err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		var amount int64
		if err := tx.QueryRowContext(ctx, available, userID).Scan(&amount); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("read balance: %w", err)
		}
		return nil, apperrors.NewInsufficientFundsError(price, amount)
	}

	var sub domain.Subscription
	if err := tx.QueryRowContext(ctx, extend, userID, days).Scan(&sub.UserID, &sub.RemainingDays, &sub.ActivatedOn); err != nil {
		return nil, fmt.Errorf("extend subscription: %w", err)
	}

	if _, err := tx.ExecContext(ctx, promote, userID); err != nil {
		return nil, fmt.Errorf("promote user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}

	if r.log != nil {
		r.log.Info("subscription purchased",
			slog.Int64("user_id", userID),
			slog.Int64("price", price),
			slog.Int("days", days),
		)
	}

	return &sub, nil
}

func (r *ledgerRepository) ExpireSubscriptions(ctx context.Context) ([]int64, error) {
	const query = `
		WITH expired AS (
			DELETE FROM subscriptions
			WHERE activated_on + remaining_days <= CURRENT_DATE
			RETURNING user_id
		)
		UPDATE users SET subscription_status = 'plain'
		WHERE id IN (SELECT user_id FROM expired)
		RETURNING id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("expire subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired user: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired users: %w", err)
	}

	return ids, nil
}

// Package ledger owns balances, VIP subscriptions and the content gate built on them.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/repository"
	"github.com/Proton-105/anime-bot/pkg/metrics"
)

// PricePeriodDays is the number of days the base price pays for.
const PricePeriodDays = 30

// Outcome is the business result of a purchase attempt.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeInsufficientFunds Outcome = "insufficient_funds"
)

// AdminChecker guards operator-only ledger operations.
type AdminChecker interface {
	RequireAdmin(ctx context.Context, userID int64, action string) error
}

// Options configures pricing.
type Options struct {
	BasePrice int64
	PlanDays  []int
}

// Plan is one purchasable subscription length.
type Plan struct {
	Days  int
	Price int64
}

// PurchaseResult describes a purchase attempt. Subscription is set on success.
type PurchaseResult struct {
	Outcome      Outcome
	Price        int64
	Subscription *domain.Subscription
}

// VIPView is what the VIP menu shows for a user.
type VIPView struct {
	Status    domain.SubscriptionStatus
	Active    bool
	ExpiresOn time.Time
}

// Service provides ledger operations. Balances are always read from the store.
type Service struct {
	repo   repository.LedgerRepository
	admins AdminChecker
	opts   Options
	log    *slog.Logger
	now    func() time.Time
}

// NewService constructs a ledger Service.
func NewService(repo repository.LedgerRepository, admins AdminChecker, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if len(opts.PlanDays) == 0 {
		opts.PlanDays = []int{30, 60, 90}
	}

	return &Service{repo: repo, admins: admins, opts: opts, log: log, now: time.Now}
}

// Price returns the cost of days of VIP at base price per period, rounded down.
func Price(base int64, days int) int64 {
	return base * int64(days) / PricePeriodDays
}

// Plans lists the purchasable subscription lengths with their prices.
func (s *Service) Plans() []Plan {
	plans := make([]Plan, 0, len(s.opts.PlanDays))
	for _, days := range s.opts.PlanDays {
		plans = append(plans, Plan{Days: days, Price: Price(s.opts.BasePrice, days)})
	}
	return plans
}

// Purchase buys days of VIP for userID. The debit, subscription extension and
// status change commit together or not at all.
func (s *Service) Purchase(ctx context.Context, userID int64, days int) (PurchaseResult, error) {
	if days <= 0 {
		return PurchaseResult{}, apperrors.NewValidationError("days must be positive")
	}

	price := Price(s.opts.BasePrice, days)
	sub, err := s.repo.Purchase(ctx, userID, price, days)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			metrics.RecordPurchase(string(OutcomeInsufficientFunds))
			return PurchaseResult{Outcome: OutcomeInsufficientFunds, Price: price}, nil
		}
		metrics.RecordPurchase("error")
		return PurchaseResult{}, apperrors.NewDatabaseError(err)
	}

	metrics.RecordPurchase(string(OutcomeSuccess))
	s.log.Info("vip purchased", slog.Int64("user_id", userID), slog.Int("days", days), slog.Int64("price", price))

	return PurchaseResult{Outcome: OutcomeSuccess, Price: price, Subscription: sub}, nil
}

// Balance returns the current balance row of userID.
func (s *Service) Balance(ctx context.Context, userID int64) (*domain.Balance, error) {
	b, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, mapStoreError("balance", err)
	}
	return b, nil
}

// IsBanned reports the moderation flag. A user without a balance row is not banned.
func (s *Service) IsBanned(ctx context.Context, userID int64) (bool, error) {
	b, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.NewDatabaseError(err)
	}
	return b.Banned, nil
}

// Credit adds amount to target's balance and returns the new total.
func (s *Service) Credit(ctx context.Context, caller, target, amount int64) (int64, error) {
	if err := s.admins.RequireAdmin(ctx, caller, "credit balance"); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, apperrors.NewValidationError("amount must be positive")
	}

	total, err := s.repo.Credit(ctx, target, amount)
	if err != nil {
		return 0, mapStoreError("user", err)
	}

	s.log.Info("balance credited", slog.Int64("caller", caller), slog.Int64("user_id", target), slog.Int64("amount", amount))
	return total, nil
}

// SetBalance overwrites target's balance.
func (s *Service) SetBalance(ctx context.Context, caller, target, amount int64) error {
	if err := s.admins.RequireAdmin(ctx, caller, "set balance"); err != nil {
		return err
	}
	if amount < 0 {
		return apperrors.NewValidationError("amount must not be negative")
	}

	if err := s.repo.SetBalance(ctx, target, amount); err != nil {
		return mapStoreError("user", err)
	}

	s.log.Info("balance set", slog.Int64("caller", caller), slog.Int64("user_id", target), slog.Int64("amount", amount))
	return nil
}

// Ban blocks target from interacting with the bot.
func (s *Service) Ban(ctx context.Context, caller, target int64) error {
	return s.setBanned(ctx, caller, target, true)
}

// Unban lifts a ban.
func (s *Service) Unban(ctx context.Context, caller, target int64) error {
	return s.setBanned(ctx, caller, target, false)
}

func (s *Service) setBanned(ctx context.Context, caller, target int64, banned bool) error {
	action := "unban"
	if banned {
		action = "ban"
	}

	if err := s.admins.RequireAdmin(ctx, caller, action); err != nil {
		return err
	}

	if err := s.repo.SetBanned(ctx, target, banned); err != nil {
		return mapStoreError("user", err)
	}

	s.log.Info("ban flag changed", slog.Int64("caller", caller), slog.Int64("user_id", target), slog.Bool("banned", banned))
	return nil
}

// VIPStatus returns what the VIP menu needs to decide between expiry and purchase views.
func (s *Service) VIPStatus(ctx context.Context, user *domain.User) (VIPView, error) {
	view := VIPView{Status: domain.StatusPlain}
	if user == nil {
		return view, nil
	}
	view.Status = user.Status

	sub, err := s.repo.GetSubscription(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return view, nil
		}
		return view, apperrors.NewDatabaseError(err)
	}

	view.ExpiresOn = sub.ExpiresOn()
	view.Active = user.IsVIP() && view.ExpiresOn.After(s.today())
	return view, nil
}

// CanWatch reports whether user may receive episodes of title.
func (s *Service) CanWatch(user *domain.User, title *domain.Title) bool {
	if title == nil || !title.VIPOnly {
		return true
	}
	return user.IsVIP()
}

// ExpireSubscriptions downgrades users whose subscription has ended.
func (s *Service) ExpireSubscriptions(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ExpireSubscriptions(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if len(ids) > 0 {
		s.log.Info("subscriptions expired", slog.Int("count", len(ids)))
	}
	return ids, nil
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func mapStoreError(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(what)
	}
	return apperrors.NewDatabaseError(err)
}

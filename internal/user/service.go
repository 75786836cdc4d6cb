// Package user manages chat users: first-contact registration, activity tracking and audiences.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/repository"
)

// Service provides business operations over users.
type Service struct {
	repo repository.UserRepository
	log  *slog.Logger
	now  func() time.Time
}

// NewService constructs a new Service instance.
func NewService(repo repository.UserRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// GetOrCreate fetches a user by platform ID or registers a new plain user with
// an empty balance. referralID is only recorded on first contact.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User, referralID *int64) (*domain.User, error) {
	if telegramUser == nil {
		return nil, errors.New("telegram user is nil")
	}

	user, err := s.repo.FindByID(ctx, telegramUser.ID)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		s.logError("get_or_create.find", telegramUser.ID, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	if referralID != nil && *referralID == telegramUser.ID {
		referralID = nil
	}

	now := s.now().UTC()
	newUser := &domain.User{
		ID:           telegramUser.ID,
		Status:       domain.StatusPlain,
		ReferralID:   referralID,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	created, err := s.repo.Create(ctx, newUser)
	if err != nil {
		s.logError("get_or_create.create", telegramUser.ID, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	if !created {
		// lost a first-contact race with a concurrent update from the same user
		return s.repo.FindByID(ctx, telegramUser.ID)
	}

	if s.log != nil {
		s.log.Info("user registered", slog.Int64("user_id", newUser.ID))
	}

	return newUser, nil
}

// Find loads a registered user. Unknown ids yield a NotFound error.
func (s *Service) Find(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user")
		}
		s.logError("find", userID, err)
		return nil, apperrors.NewDatabaseError(err)
	}
	return user, nil
}

// UpdateLastActive refreshes the last_active_at field for the user.
func (s *Service) UpdateLastActive(ctx context.Context, userID int64) error {
	if err := s.repo.UpdateLastActiveAt(ctx, userID); err != nil {
		s.logError("update_last_active", userID, err)
		return err
	}

	return nil
}

// Audience returns every registered user id, the recipient list of a broadcast.
func (s *Service) Audience(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		s.logError("audience", 0, err)
		return nil, err
	}

	return ids, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Growth is the number of users registered in the current day, the last seven
// days and the current calendar month.
type Growth struct {
	Today int64
	Week  int64
	Month int64
}

// Growth counts new users. Periods start at midnight of the service clock.
func (s *Service) Growth(ctx context.Context) (Growth, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var g Growth
	periods := []struct {
		since time.Time
		dst   *int64
	}{
		{since: midnight, dst: &g.Today},
		{since: midnight.AddDate(0, 0, -7), dst: &g.Week},
		{since: midnight.AddDate(0, 0, 1-now.Day()), dst: &g.Month},
	}

	for _, p := range periods {
		n, err := s.repo.CountSince(ctx, p.since)
		if err != nil {
			s.logError("growth", 0, err)
			return Growth{}, fmt.Errorf("count new users: %w", err)
		}
		*p.dst = n
	}

	return g, nil
}

func (s *Service) logError(operation string, userID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}

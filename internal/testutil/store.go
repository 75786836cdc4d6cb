package testutil

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Proton-105/anime-bot/internal/domain"
	apperrors "github.com/Proton-105/anime-bot/internal/errors"
	"github.com/Proton-105/anime-bot/internal/repository"
)

// Store is an in-memory stand-in for the SQL store. Its repositories share one
// mutex, so a purchase touches balance, subscription and status atomically.
type Store struct {
	mu       sync.Mutex
	Today    time.Time
	users    map[int64]*domain.User
	balances map[int64]*domain.Balance
	subs     map[int64]*domain.Subscription
	titles   map[int64]*domain.Title
	nextID   int64
	counters map[int64]int
	episodes map[int64]map[int]string
}

func NewStore() *Store {
	now := time.Now().UTC()
	return &Store{
		Today:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		users:    make(map[int64]*domain.User),
		balances: make(map[int64]*domain.Balance),
		subs:     make(map[int64]*domain.Subscription),
		titles:   make(map[int64]*domain.Title),
		counters: make(map[int64]int),
		episodes: make(map[int64]map[int]string),
	}
}

func (s *Store) Users() repository.UserRepository       { return storeUsers{s} }
func (s *Store) Titles() repository.TitleRepository     { return storeTitles{s} }
func (s *Store) Episodes() repository.EpisodeRepository { return storeEpisodes{s} }
func (s *Store) Ledger() repository.LedgerRepository    { return storeLedger{s} }

// AddUser registers a plain user holding amount.
func (s *Store) AddUser(id, amount int64) {
	s.AddUserJoined(id, amount, time.Now())
}

// AddUserJoined registers a plain user holding amount who first wrote at joined.
func (s *Store) AddUserJoined(id, amount int64, joined time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &domain.User{ID: id, Status: domain.StatusPlain, CreatedAt: joined, LastActiveAt: joined}
	s.balances[id] = &domain.Balance{UserID: id, Amount: amount}
}

// AddSubscription gives a user a VIP subscription of days starting at activatedOn.
func (s *Store) AddSubscription(userID int64, days int, activatedOn time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[userID] = &domain.Subscription{UserID: userID, RemainingDays: days, ActivatedOn: activatedOn}
	if u, ok := s.users[userID]; ok {
		u.Status = domain.StatusVIP
	}
}

// AddTitle stores a title with episodes numbered 1..episodes.
func (s *Store) AddTitle(t domain.Title, episodes int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.titles[t.ID] = &t
	s.episodes[t.ID] = make(map[int]string)
	for n := 1; n <= episodes; n++ {
		s.episodes[t.ID][n] = "file-" + t.Name
	}
	s.counters[t.ID] = episodes
	return t.ID
}

func (s *Store) User(id int64) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *Store) Balance(id int64) *domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (s *Store) Title(id int64) *domain.Title {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.titles[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// EpisodeNumbers lists the stored numbers of a title in ascending order.
func (s *Store) EpisodeNumbers(titleID int64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numbersLocked(titleID)
}

func (s *Store) numbersLocked(titleID int64) []int {
	numbers := make([]int, 0, len(s.episodes[titleID]))
	for n := range s.episodes[titleID] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

type storeUsers struct{ s *Store }

func (r storeUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if u := r.s.User(id); u != nil {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r storeUsers) Create(_ context.Context, user *domain.User) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return false, nil
	}
	cp := *user
	r.s.users[user.ID] = &cp
	r.s.balances[user.ID] = &domain.Balance{UserID: user.ID}
	return true, nil
}

func (r storeUsers) UpdateLastActiveAt(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastActiveAt = time.Now()
	}
	return nil
}

func (r storeUsers) ListIDs(context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int64, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r storeUsers) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

func (r storeUsers) CountSince(_ context.Context, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type storeTitles struct{ s *Store }

func (r storeTitles) Search(_ context.Context, query string, limit int) ([]domain.Title, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Title
	for _, t := range r.s.titles {
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

func (r storeTitles) FindByID(_ context.Context, id int64) (*domain.Title, error) {
	if t := r.s.Title(id); t != nil {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (r storeTitles) View(_ context.Context, id int64) (*domain.Title, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.titles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	t.HitCount++
	cp := *t
	return &cp, nil
}

func (r storeTitles) IncrementHitCount(ctx context.Context, id int64) error {
	_, err := r.View(ctx, id)
	return err
}

func (r storeTitles) Create(_ context.Context, nt domain.NewTitle) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	r.s.titles[r.s.nextID] = &domain.Title{
		ID:           r.s.nextID,
		Name:         nt.Name,
		Media:        nt.Media,
		EpisodeCount: nt.EpisodeCount,
		Country:      nt.Country,
		Language:     nt.Language,
		ReleaseYear:  nt.ReleaseYear,
		Genres:       nt.Genres,
		DubSource:    nt.DubSource,
		CreatedAt:    time.Now(),
	}
	return r.s.nextID, nil
}

func (r storeTitles) SetVIPOnly(_ context.Context, id int64, vipOnly bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.titles[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.VIPOnly = vipOnly
	return nil
}

func (r storeTitles) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.titles)), nil
}

type storeEpisodes struct{ s *Store }

func (r storeEpisodes) Add(_ context.Context, titleID int64, fileID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.titles[titleID]; !ok {
		return 0, sql.ErrNoRows
	}
	r.s.counters[titleID]++
	n := r.s.counters[titleID]
	if r.s.episodes[titleID] == nil {
		r.s.episodes[titleID] = make(map[int]string)
	}
	r.s.episodes[titleID][n] = fileID
	return n, nil
}

func (r storeEpisodes) ListNumbers(_ context.Context, titleID int64) ([]int, error) {
	return r.s.EpisodeNumbers(titleID), nil
}

func (r storeEpisodes) Find(_ context.Context, titleID int64, number int) (*domain.Episode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fileID, ok := r.s.episodes[titleID][number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &domain.Episode{TitleID: titleID, Number: number, FileID: fileID}, nil
}

func (r storeEpisodes) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, eps := range r.s.episodes {
		n += int64(len(eps))
	}
	return n, nil
}

type storeLedger struct{ s *Store }

func (r storeLedger) GetBalance(_ context.Context, userID int64) (*domain.Balance, error) {
	if b := r.s.Balance(userID); b != nil {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (r storeLedger) Credit(_ context.Context, userID, amount int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	b.Amount += amount
	return b.Amount, nil
}

func (r storeLedger) SetBalance(_ context.Context, userID, amount int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok {
		return sql.ErrNoRows
	}
	b.Amount = amount
	return nil
}

func (r storeLedger) SetBanned(_ context.Context, userID int64, banned bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok {
		return sql.ErrNoRows
	}
	b.Banned = banned
	return nil
}

func (r storeLedger) GetSubscription(_ context.Context, userID int64) (*domain.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (r storeLedger) Purchase(_ context.Context, userID, price int64, days int) (*domain.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.balances[userID]
	if !ok || b.Amount < price {
		var available int64
		if ok {
			available = b.Amount
		}
		return nil, apperrors.NewInsufficientFundsError(price, available)
	}
	b.Amount -= price

	sub, ok := r.s.subs[userID]
	if !ok || sub.ExpiresOn().Before(r.s.Today) {
		sub = &domain.Subscription{UserID: userID, ActivatedOn: r.s.Today}
		r.s.subs[userID] = sub
	}
	sub.RemainingDays += days
	if u, ok := r.s.users[userID]; ok {
		u.Status = domain.StatusVIP
	}

	cp := *sub
	return &cp, nil
}

func (r storeLedger) ExpireSubscriptions(context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids []int64
	for id, sub := range r.s.subs {
		if sub.ExpiresOn().After(r.s.Today) {
			continue
		}
		delete(r.s.subs, id)
		if u, ok := r.s.users[id]; ok {
			u.Status = domain.StatusPlain
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/anime-bot/internal/sweep"
)

const stateKeyPrefix = "user:state:"

// Storage persists one conversation state per user.
type Storage interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state *UserState) error
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates lists every stored state, in no particular order.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// RedisStorage keeps each state as a JSON document under user:state:<id>.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage returns a Storage on client. A zero ttl keeps states until
// they are cleared.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}
	if ttl < 0 {
		ttl = 0
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// GetState returns ErrStateNotFound when userID has no state.
func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("state: read failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	var us UserState
	if err := json.Unmarshal(raw, &us); err != nil {
		s.log.Error("state: corrupt document", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return &us, nil
}

// SetState stamps UpdatedAt and stores st.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	st.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, stateKey(userID), raw, s.ttl).Err(); err != nil {
		s.log.Error("state: write failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	return nil
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		s.log.Error("state: clear failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	return nil
}

// GetAllStates loads every state, one MGET per scan batch. Corrupt documents
// are skipped.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		result  []*UserState
		loadErr error
	)

	err := sweep.ScanKeys(ctx, s.client, stateKeyPrefix+"*", func(keys []string) {
		if loadErr != nil {
			return
		}

		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			loadErr = err
			return
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}

			var us UserState
			if err := json.Unmarshal([]byte(raw), &us); err != nil {
				s.log.Warn("state: skipping corrupt document", slog.String("key", keys[i]), slog.Any("error", err))
				continue
			}
			result = append(result, &us)
		}
	})
	if err == nil {
		err = loadErr
	}
	if err != nil {
		s.log.Error("state: listing failed", slog.Any("error", err))
		return nil, err
	}

	return result, nil
}

func stateKey(userID int64) string {
	return stateKeyPrefix + strconv.FormatInt(userID, 10)
}

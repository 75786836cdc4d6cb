package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "user:lock:%d"
	defaultLockTTL     = 5 * time.Second
	lockAttempts       = 3
	lockRetryDelay     = 20 * time.Millisecond
)

var (
	// ErrInvalidTransition indicates that a requested step transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the conversation controller.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState replaces whatever is stored for the user. Starting a flow uses it,
	// so stale state from an abandoned flow never leaks into the new one.
	SetState(ctx context.Context, userID int64, state State, fields map[string]string) error
	// TransitionTo moves to newState, merging fields into the collected values.
	TransitionTo(ctx context.Context, userID int64, newState State, fields map[string]string) error
	// UpdateFields merges partial into the collected values without changing the step.
	UpdateFields(ctx context.Context, userID int64, partial map[string]string) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// machine is a concrete implementation of StateMachine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
	lockTTL     time.Duration
}

// NewStateMachine creates a controller using the provided storage backend and redis client for locking.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	return NewStateMachineWithLockTTL(storage, log, redisClient, defaultLockTTL)
}

// NewStateMachineWithLockTTL is NewStateMachine with an explicit lock expiry.
func NewStateMachineWithLockTTL(storage Storage, log *slog.Logger, redisClient *redis.Client, lockTTL time.Duration) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
		lockTTL:     lockTTL,
	}
}

// GetState proxies to the underlying storage implementation.
func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

// GetAllStates returns every persisted user state.
func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

func (m *machine) SetState(ctx context.Context, userID int64, state State, fields map[string]string) error {
	return m.withLock(ctx, userID, func() error {
		transitionRecorder(string(StateIdle), string(state))
		return m.save(ctx, userID, state, mergeFields(nil, fields))
	})
}

func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State, fields map[string]string) error {
	return m.withLock(ctx, userID, func() error {
		current := StateIdle
		var collected map[string]string

		stored, err := m.storage.GetState(ctx, userID)
		if err != nil {
			if !errors.Is(err, ErrStateNotFound) {
				return err
			}
		} else if stored != nil {
			current = stored.CurrentState
			collected = stored.Fields
		}

		if !IsTransitionAllowed(current, newState) {
			m.log.Warn("invalid state transition", "user_id", userID, "from", current, "to", newState)
			return ErrInvalidTransition
		}

		transitionRecorder(string(current), string(newState))

		if newState == StateIdle {
			return m.storage.ClearState(ctx, userID)
		}

		return m.save(ctx, userID, newState, mergeFields(collected, fields))
	})
}

func (m *machine) UpdateFields(ctx context.Context, userID int64, partial map[string]string) error {
	return m.withLock(ctx, userID, func() error {
		stored, err := m.storage.GetState(ctx, userID)
		if err != nil {
			return err
		}

		return m.save(ctx, userID, stored.CurrentState, mergeFields(stored.Fields, partial))
	})
}

// ClearState removes the stored state via the backing storage while holding the lock.
func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.withLock(ctx, userID, func() error {
		return m.storage.ClearState(ctx, userID)
	})
}

func (m *machine) save(ctx context.Context, userID int64, state State, fields map[string]string) error {
	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		CurrentState: state,
		Fields:       fields,
	})
}

func (m *machine) withLock(ctx context.Context, userID int64, fn func() error) error {
	token, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer m.unlock(ctx, userID, token)

	return fn()
}

func (m *machine) lock(ctx context.Context, userID int64) (string, error) {
	if m.redisClient == nil {
		return "", nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	token := uuid.NewString()

	for attempt := 1; ; attempt++ {
		acquired, err := m.redisClient.SetNX(ctx, key, token, m.lockTTL).Result()
		if err != nil {
			m.log.Error("failed to acquire user state lock", "user_id", userID, "error", err)
			return "", err
		}
		if acquired {
			return token, nil
		}
		if attempt == lockAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	m.log.Warn("user state lock already held", "user_id", userID)
	return "", ErrStateLocked
}

func (m *machine) unlock(ctx context.Context, userID int64, token string) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := releaseScript.Run(context.WithoutCancel(ctx), m.redisClient, []string{key}, token).Err(); err != nil {
		m.log.Error("failed to release user state lock", "user_id", userID, "error", err)
	}
}

// Package access decides who may run operator actions.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

const adminsKey = "admins"

// Registry holds the admin set. The primary admin is fixed by configuration and
// can never be removed; the rest live in a Redis set so updates are atomic.
type Registry struct {
	client  *redis.Client
	primary int64
	log     *slog.Logger
}

// NewRegistry constructs a Registry around the given primary admin.
func NewRegistry(client *redis.Client, primary int64, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{client: client, primary: primary, log: log}
}

// Seed adds ids to the admin set. It is used once at startup with configured admins.
func (r *Registry) Seed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	members := make([]any, 0, len(ids))
	for _, id := range ids {
		members = append(members, id)
	}

	if err := r.client.SAdd(ctx, adminsKey, members...).Err(); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}
	return nil
}

func (r *Registry) Primary() int64 {
	return r.primary
}

// IsAdmin reports whether userID may run operator actions.
func (r *Registry) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if userID == r.primary {
		return true, nil
	}

	ok, err := r.client.SIsMember(ctx, adminsKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return ok, nil
}

// Add grants admin rights to target. Only an existing admin may call it.
func (r *Registry) Add(ctx context.Context, caller, target int64) (bool, error) {
	if err := r.requireAdmin(ctx, caller, "add admin"); err != nil {
		return false, err
	}
	if target <= 0 {
		return false, apperrors.NewValidationError("admin id must be positive")
	}
	if target == r.primary {
		return false, nil
	}

	added, err := r.client.SAdd(ctx, adminsKey, target).Result()
	if err != nil {
		return false, fmt.Errorf("add admin: %w", err)
	}

	r.log.Info("admin added", slog.Int64("caller", caller), slog.Int64("admin_id", target))
	return added == 1, nil
}

// Remove revokes admin rights from target. The primary admin cannot be removed.
func (r *Registry) Remove(ctx context.Context, caller, target int64) (bool, error) {
	if err := r.requireAdmin(ctx, caller, "remove admin"); err != nil {
		return false, err
	}
	if target == r.primary {
		return false, apperrors.NewPermissionError("remove primary admin")
	}

	removed, err := r.client.SRem(ctx, adminsKey, target).Result()
	if err != nil {
		return false, fmt.Errorf("remove admin: %w", err)
	}

	r.log.Info("admin removed", slog.Int64("caller", caller), slog.Int64("admin_id", target))
	return removed == 1, nil
}

// List returns every admin id in ascending order, primary included.
func (r *Registry) List(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, adminsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	ids := []int64{r.primary}
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || id == r.primary {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// RequireAdmin returns a permission AppError unless userID is an admin.
func (r *Registry) RequireAdmin(ctx context.Context, userID int64, action string) error {
	return r.requireAdmin(ctx, userID, action)
}

func (r *Registry) requireAdmin(ctx context.Context, userID int64, action string) error {
	ok, err := r.IsAdmin(ctx, userID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if !ok {
		return apperrors.NewPermissionError(action)
	}
	return nil
}

// Package ratelimit throttles chat updates per user and per command class.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Result is the state of one window after a Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts hits against key within a sliding window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded is returned alongside the Result of a rejected hit.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// GlobalKey is shared by every update.
const GlobalKey = "global"

// UserKey is the per-user bucket.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// CommandKey is the bucket of one command class for one user.
func CommandKey(command string, userID int64) string {
	return "cmd:" + command + ":" + strconv.FormatInt(userID, 10)
}

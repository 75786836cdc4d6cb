package ratelimit

import (
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/Proton-105/anime-bot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether limits are enforced at all.
func (r *Rules) Enabled() bool {
	return r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	return lo.Contains(r.config.Whitelist, userID)
}

// Rate-limited command classes.
const (
	CommandSearch    = "search"
	CommandPurchase  = "purchase"
	CommandBroadcast = "broadcast"
)

// ErrUnsupportedCommand is returned for command classes without a dedicated rule.
var ErrUnsupportedCommand = errors.New("unsupported command")

// GetCommandLimit returns the limit and window for a specific command class.
func (r *Rules) GetCommandLimit(command string) (int, time.Duration, error) {
	switch command {
	case CommandSearch:
		return parseRule(r.config.Commands.Search)
	case CommandPurchase:
		return parseRule(r.config.Commands.Purchase)
	case CommandBroadcast:
		return parseRule(r.config.Commands.Broadcast)
	default:
		return 0, 0, ErrUnsupportedCommand
	}
}

// GetGlobalLimit returns the global rate limiting rule.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

// GetPerUserLimit returns the per-user rate limiting rule.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}

package domain

import "time"

// SubscriptionStatus is the paid tier of a user.
type SubscriptionStatus string

const (
	StatusPlain SubscriptionStatus = "plain"
	StatusVIP   SubscriptionStatus = "vip"
)

// User represents a chat user stored in the database. Users are never hard-deleted.
type User struct {
	ID           int64
	Status       SubscriptionStatus
	ReferralID   *int64
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// IsVIP reports whether the user currently holds the paid tier.
func (u *User) IsVIP() bool {
	return u != nil && u.Status == StatusVIP
}

// Balance is the spendable amount and moderation flag of a user.
type Balance struct {
	UserID int64
	Amount int64
	Banned bool
}

// Subscription tracks paid days. Expiry is ActivatedOn plus RemainingDays.
type Subscription struct {
	UserID        int64
	RemainingDays int
	ActivatedOn   time.Time
}

// ExpiresOn returns the calendar day the subscription ends.
func (s Subscription) ExpiresOn() time.Time {
	return s.ActivatedOn.AddDate(0, 0, s.RemainingDays)
}

package repository

import (
	mailboxdomain "outreach-backend/internal/mailbox/domain"
)

// WatchRepository defines the interface for watch subscription storage.
type WatchRepository interface {
	// Create stores a brand-new subscription
	Create(sub *mailboxdomain.WatchSubscription) error
	// FindByEmail returns (nil, nil) when no subscription exists
	FindByEmail(mailboxEmail string) (*mailboxdomain.WatchSubscription, error)
	// FindExpiringBefore returns subscriptions whose expiration falls before
	// the given epoch-millisecond instant
	FindExpiringBefore(expirationMs int64) ([]*mailboxdomain.WatchSubscription, error)
	// DeleteByEmail removes the subscription; removing a missing one is
	// not an error
	DeleteByEmail(mailboxEmail string) error
	// Advance conditionally moves the cursor forward and/or extends the
	// expiration. The cursor only advances when newCursor is strictly
	// greater than the stored one; the previous cursor is pushed onto the
	// backup ring. Returns whether the cursor actually moved.
	Advance(mailboxEmail string, newCursor uint64, expirationMs int64, notificationID string) (bool, error)
}

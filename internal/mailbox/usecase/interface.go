package usecase

import (
	"context"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
)

// TokenUsecase is the single source of truth for "current valid token".
type TokenUsecase interface {
	// GetValidToken never returns an expired token. A credential-kind error
	// means the mailbox needs re-authorization; transient errors may be
	// retried by the caller.
	GetValidToken(ctx context.Context, mailboxEmail string) (string, error)
}

// WatchUsecase manages provider push-notification subscriptions.
type WatchUsecase interface {
	// EnsureWatch registers or renews the subscription. With ignoreIfFresh,
	// a subscription still comfortably ahead of expiry is returned without
	// a provider call.
	EnsureWatch(ctx context.Context, mailboxEmail string, ignoreIfFresh bool) (*mailboxdomain.WatchSubscription, error)
	// SweepExpiring renews every subscription inside the renewal lead
	// window and registers watches for active mailboxes that lost theirs.
	// Per-mailbox failures are isolated and aggregated into the returned
	// report; the sweep itself only errors on storage failure.
	SweepExpiring(ctx context.Context) (*SweepReport, error)
	// Disconnect stops the provider push channel and removes the stored
	// subscription. The credential itself is the caller's concern.
	Disconnect(ctx context.Context, mailboxEmail string) error
}

// InboundProcessor consumes the candidate messages a sync produces.
// Implemented by the campaign layer (classification + event recording);
// wired in at startup to keep the feature slices decoupled.
type InboundProcessor interface {
	ProcessInbound(ctx context.Context, mailboxEmail string, msgs []*mailboxdomain.CandidateMessage) error
}

// SyncUsecase drives incremental history synchronization.
type SyncUsecase interface {
	// Sync pages the provider history from fromHistoryID to exhaustion and
	// returns deduplicated candidates plus the newest history id observed.
	// Any page failure aborts the whole sync; the caller must not advance
	// the cursor.
	Sync(ctx context.Context, mailboxEmail string, fromHistoryID uint64) ([]*mailboxdomain.CandidateMessage, uint64, error)
	// HandleNotification is the webhook entry point: sync from the stored
	// cursor, hand candidates to the inbound processor, then advance the
	// cursor to the pushed value.
	HandleNotification(ctx context.Context, mailboxEmail string, historyID uint64, notificationID string) error
	// SetInboundProcessor wires the downstream consumer
	SetInboundProcessor(p InboundProcessor)
}

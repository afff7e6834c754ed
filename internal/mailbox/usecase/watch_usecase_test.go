package usecase

import (
	"context"
	"testing"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
	"outreach-backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureWatch_RegistersNewSubscription(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	exp := time.Now().Add(7 * 24 * time.Hour).UnixMilli()
	provider := &fakeProvider{
		watchFn: func(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
			assert.Equal(t, "projects/p/topics/gmail-updates", topicName)
			return &mailboxdomain.WatchResult{HistoryID: 100, ExpirationMs: exp}, nil
		},
	}

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{}, provider, "projects/p/topics/gmail-updates")
	sub, err := uc.EnsureWatch(context.Background(), "alice@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), sub.HistoryCursor)
	assert.Equal(t, exp, sub.ExpirationMs)

	stored, err := watchRepo.FindByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint64(100), stored.HistoryCursor)
}

func TestEnsureWatch_FreshSubscriptionShortCircuits(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
		ID:            "sub-1",
		MailboxEmail:  "alice@example.com",
		HistoryCursor: 500,
		ExpirationMs:  time.Now().Add(48 * time.Hour).UnixMilli(),
	}))

	provider := &fakeProvider{
		watchFn: func(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
			t.Fatal("provider must not be called for a fresh subscription")
			return nil, nil
		},
	}

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{}, provider, "topic")
	sub, err := uc.EnsureWatch(context.Background(), "alice@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), sub.HistoryCursor)
}

func TestEnsureWatch_RenewalPreservesCursor(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	oldExp := time.Now().Add(30 * time.Minute).UnixMilli()
	require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
		ID:            "sub-1",
		MailboxEmail:  "alice@example.com",
		HistoryCursor: 500,
		ExpirationMs:  oldExp,
	}))

	// The provider reports an older history id on renewal; the synced
	// cursor must win.
	newExp := time.Now().Add(7 * 24 * time.Hour).UnixMilli()
	provider := &fakeProvider{
		watchFn: func(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
			return &mailboxdomain.WatchResult{HistoryID: 42, ExpirationMs: newExp}, nil
		},
	}

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{}, provider, "topic")
	sub, err := uc.EnsureWatch(context.Background(), "alice@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), sub.HistoryCursor)
	assert.Equal(t, newExp, sub.ExpirationMs)
}

func TestEnsureWatch_TokenFailurePropagates(t *testing.T) {
	uc := NewWatchUsecase(newFakeWatchRepo(), newFakeCredentialRepo(), &fakeTokens{err: apperr.Credential("reauth", nil)}, &fakeProvider{}, "topic")
	_, err := uc.EnsureWatch(context.Background(), "alice@example.com", false)
	require.Error(t, err)
	assert.True(t, apperr.IsCredential(err))
}

func TestSweepExpiring_IsolatesPerMailboxFailures(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	soon := time.Now().Add(10 * time.Minute).UnixMilli()
	for _, email := range []string{"ok@example.com", "broken@example.com"} {
		require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
			ID:            "sub-" + email,
			MailboxEmail:  email,
			HistoryCursor: 10,
			ExpirationMs:  soon,
		}))
	}

	newExp := time.Now().Add(7 * 24 * time.Hour).UnixMilli()
	provider := &fakeProvider{
		// fakeTokens hands the mailbox email out as the access token
		watchFn: func(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
			if accessToken == "broken@example.com" {
				return nil, apperr.Transient("watch registration failed", nil)
			}
			return &mailboxdomain.WatchResult{HistoryID: 11, ExpirationMs: newExp}, nil
		},
	}

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{}, provider, "topic")
	report, err := uc.SweepExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Renewed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken@example.com", report.Failures[0].MailboxEmail)

	// The healthy mailbox got its expiration extended despite the sibling
	// failure
	renewed, err := watchRepo.FindByEmail("ok@example.com")
	require.NoError(t, err)
	assert.Equal(t, newExp, renewed.ExpirationMs)
}

func TestSweepExpiring_NothingDue(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
		ID:           "sub-1",
		MailboxEmail: "alice@example.com",
		ExpirationMs: time.Now().Add(72 * time.Hour).UnixMilli(),
	}))

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{}, &fakeProvider{}, "topic")
	report, err := uc.SweepExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, report.Failures)
}

func TestSweepExpiring_RegistersActiveMailboxWithoutSubscription(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	credentialRepo := newFakeCredentialRepo()

	// alice holds a fresh subscription; bob is active but lost his
	require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
		ID:            "sub-alice",
		MailboxEmail:  "alice@example.com",
		HistoryCursor: 10,
		ExpirationMs:  time.Now().Add(72 * time.Hour).UnixMilli(),
	}))
	require.NoError(t, credentialRepo.Upsert(&mailboxdomain.MailboxCredential{MailboxEmail: "alice@example.com"}))
	require.NoError(t, credentialRepo.Upsert(&mailboxdomain.MailboxCredential{MailboxEmail: "bob@example.com"}))
	require.NoError(t, credentialRepo.Upsert(&mailboxdomain.MailboxCredential{
		MailboxEmail: "gone@example.com",
		Status:       mailboxdomain.CredentialStatusReauthRequired,
	}))

	exp := time.Now().Add(7 * 24 * time.Hour).UnixMilli()
	provider := &fakeProvider{
		watchFn: func(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
			assert.Equal(t, "bob@example.com", accessToken)
			return &mailboxdomain.WatchResult{HistoryID: 200, ExpirationMs: exp}, nil
		},
	}

	uc := NewWatchUsecase(watchRepo, credentialRepo, &fakeTokens{}, provider, "topic")
	report, err := uc.SweepExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned, "only the subscription-less active mailbox is due")
	assert.Equal(t, 1, report.Renewed)
	assert.Empty(t, report.Failures)

	sub, err := watchRepo.FindByEmail("bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, uint64(200), sub.HistoryCursor)

	// Non-active credentials stay untouched
	gone, err := watchRepo.FindByEmail("gone@example.com")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDisconnect_StopsWatchAndRemovesSubscription(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
		ID:           "sub-1",
		MailboxEmail: "alice@example.com",
		ExpirationMs: time.Now().Add(72 * time.Hour).UnixMilli(),
	}))

	stopped := 0
	provider := &fakeProvider{
		stopWatchFn: func(ctx context.Context, accessToken string) error {
			stopped++
			assert.Equal(t, "alice@example.com", accessToken)
			return nil
		},
	}

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{}, provider, "topic")
	require.NoError(t, uc.Disconnect(context.Background(), "alice@example.com"))
	assert.Equal(t, 1, stopped)

	sub, err := watchRepo.FindByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestDisconnect_DeadCredentialStillRemovesSubscription(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	require.NoError(t, watchRepo.Create(&mailboxdomain.WatchSubscription{
		ID:           "sub-1",
		MailboxEmail: "alice@example.com",
	}))

	provider := &fakeProvider{
		stopWatchFn: func(ctx context.Context, accessToken string) error {
			t.Fatal("provider stop must not run without a valid token")
			return nil
		},
	}

	uc := NewWatchUsecase(watchRepo, newFakeCredentialRepo(), &fakeTokens{err: apperr.Credential("reauth", nil)}, provider, "topic")
	require.NoError(t, uc.Disconnect(context.Background(), "alice@example.com"))

	sub, err := watchRepo.FindByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

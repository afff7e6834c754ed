package usecase

import (
	"context"
	"sync"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
)

type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]*mailboxdomain.MailboxCredential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[string]*mailboxdomain.MailboxCredential)}
}

func (r *fakeCredentialRepo) Upsert(cred *mailboxdomain.MailboxCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred.Status == "" {
		cred.Status = mailboxdomain.CredentialStatusActive
	}
	copied := *cred
	r.creds[cred.MailboxEmail] = &copied
	return nil
}

func (r *fakeCredentialRepo) FindByEmail(mailboxEmail string) (*mailboxdomain.MailboxCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[mailboxEmail]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeCredentialRepo) FindAllActive() ([]*mailboxdomain.MailboxCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*mailboxdomain.MailboxCredential
	for _, cred := range r.creds {
		if cred.Status == mailboxdomain.CredentialStatusActive {
			copied := *cred
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) UpdateTokens(mailboxEmail, accessToken string, expiryMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.creds[mailboxEmail]; ok {
		cred.AccessToken = accessToken
		cred.ExpiryMs = expiryMs
	}
	return nil
}

func (r *fakeCredentialRepo) MarkStatus(mailboxEmail, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.creds[mailboxEmail]; ok {
		cred.Status = status
	}
	return nil
}

type fakeRefresher struct {
	refreshFn func(ctx context.Context, refreshToken string) (*mailboxdomain.RefreshedToken, error)
	calls     int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*mailboxdomain.RefreshedToken, error) {
	f.calls++
	return f.refreshFn(ctx, refreshToken)
}

type fakeWatchRepo struct {
	mu   sync.Mutex
	subs map[string]*mailboxdomain.WatchSubscription
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{subs: make(map[string]*mailboxdomain.WatchSubscription)}
}

func (r *fakeWatchRepo) Create(sub *mailboxdomain.WatchSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *sub
	r.subs[sub.MailboxEmail] = &copied
	return nil
}

func (r *fakeWatchRepo) FindByEmail(mailboxEmail string) (*mailboxdomain.WatchSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[mailboxEmail]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeWatchRepo) FindExpiringBefore(expirationMs int64) ([]*mailboxdomain.WatchSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*mailboxdomain.WatchSubscription
	for _, sub := range r.subs {
		if sub.ExpirationMs <= expirationMs {
			copied := *sub
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeWatchRepo) DeleteByEmail(mailboxEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, mailboxEmail)
	return nil
}

// Advance mirrors the conditional-write semantics of the real repository:
// the cursor only moves forward, the expiration only extends.
func (r *fakeWatchRepo) Advance(mailboxEmail string, newCursor uint64, expirationMs int64, notificationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[mailboxEmail]
	if !ok {
		return false, nil
	}
	advanced := false
	if newCursor > sub.HistoryCursor {
		sub.PushBackup(mailboxdomain.CursorBackupEntry{
			Cursor:         sub.HistoryCursor,
			NotificationID: notificationID,
			ReceivedAt:     time.Now(),
		})
		sub.HistoryCursor = newCursor
		advanced = true
	}
	if expirationMs > sub.ExpirationMs {
		sub.ExpirationMs = expirationMs
	}
	return advanced, nil
}

// fakeProvider implements MailProvider with overridable functions; nil
// functions return zero values.
type fakeProvider struct {
	watchFn       func(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error)
	stopWatchFn   func(ctx context.Context, accessToken string) error
	listHistoryFn func(ctx context.Context, accessToken string, startHistoryID uint64, pageToken string) (*mailboxdomain.HistoryPage, error)
	getMessageFn  func(ctx context.Context, accessToken, messageID string) (*mailboxdomain.CandidateMessage, error)
}

func (p *fakeProvider) Watch(ctx context.Context, accessToken, topicName string) (*mailboxdomain.WatchResult, error) {
	if p.watchFn == nil {
		return &mailboxdomain.WatchResult{}, nil
	}
	return p.watchFn(ctx, accessToken, topicName)
}

func (p *fakeProvider) StopWatch(ctx context.Context, accessToken string) error {
	if p.stopWatchFn == nil {
		return nil
	}
	return p.stopWatchFn(ctx, accessToken)
}

func (p *fakeProvider) ListHistory(ctx context.Context, accessToken string, startHistoryID uint64, pageToken string) (*mailboxdomain.HistoryPage, error) {
	if p.listHistoryFn == nil {
		return &mailboxdomain.HistoryPage{}, nil
	}
	return p.listHistoryFn(ctx, accessToken, startHistoryID, pageToken)
}

func (p *fakeProvider) GetMessage(ctx context.Context, accessToken, messageID string) (*mailboxdomain.CandidateMessage, error) {
	if p.getMessageFn == nil {
		return &mailboxdomain.CandidateMessage{MessageID: messageID}, nil
	}
	return p.getMessageFn(ctx, accessToken, messageID)
}

func (p *fakeProvider) ListThreadMessages(ctx context.Context, accessToken, threadID string) ([]*mailboxdomain.CandidateMessage, error) {
	return nil, nil
}

func (p *fakeProvider) SendMessage(ctx context.Context, accessToken string, mail *mailboxdomain.OutboundMail) (string, error) {
	return "", nil
}

// fakeTokens hands out the mailbox email as the access token so provider
// fakes can tell mailboxes apart.
type fakeTokens struct {
	err error
}

func (t *fakeTokens) GetValidToken(ctx context.Context, mailboxEmail string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return mailboxEmail, nil
}

package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
	"outreach-backend/internal/mailbox/repository"
	"outreach-backend/pkg/apperr"
)

// RefreshSafetyMargin is how far ahead of expiry a token is considered
// stale. Tokens inside the margin are refreshed before being handed out.
const RefreshSafetyMargin = 60 * time.Second

type tokenUsecase struct {
	credRepo  repository.CredentialRepository
	refresher mailboxdomain.TokenRefresher
	margin    time.Duration

	// per-mailbox refresh locks; cross-mailbox refreshes run in parallel
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTokenUsecase(credRepo repository.CredentialRepository, refresher mailboxdomain.TokenRefresher) TokenUsecase {
	return &tokenUsecase{
		credRepo:  credRepo,
		refresher: refresher,
		margin:    RefreshSafetyMargin,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (u *tokenUsecase) GetValidToken(ctx context.Context, mailboxEmail string) (string, error) {
	cred, err := u.credRepo.FindByEmail(mailboxEmail)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", apperr.NotFound("mailbox credential")
	}
	if cred.Status == mailboxdomain.CredentialStatusReauthRequired {
		return "", apperr.Credential("mailbox requires re-authorization", nil)
	}
	if !cred.ExpiresWithin(u.margin) {
		return cred.AccessToken, nil
	}

	lock := u.mailboxLock(mailboxEmail)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent caller may have refreshed while
	// we waited.
	cred, err = u.credRepo.FindByEmail(mailboxEmail)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", apperr.NotFound("mailbox credential")
	}
	if !cred.ExpiresWithin(u.margin) {
		return cred.AccessToken, nil
	}

	refreshed, err := u.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if apperr.IsCredential(err) {
			// Terminal: the refresh token was invalidated. Mark the mailbox
			// unusable until the user re-authorizes.
			log.Printf("[TokenLifecycle] Refresh token rejected for %s, marking reauth_required", mailboxEmail)
			if markErr := u.credRepo.MarkStatus(mailboxEmail, mailboxdomain.CredentialStatusReauthRequired); markErr != nil {
				log.Printf("[TokenLifecycle] Failed to mark credential for %s: %v", mailboxEmail, markErr)
			}
		}
		return "", err
	}

	if err := u.credRepo.UpdateTokens(mailboxEmail, refreshed.AccessToken, refreshed.ExpiryMs); err != nil {
		return "", err
	}

	return refreshed.AccessToken, nil
}

func (u *tokenUsecase) mailboxLock(mailboxEmail string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.locks[mailboxEmail]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[mailboxEmail] = lock
	}
	return lock
}

package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
	"outreach-backend/internal/mailbox/repository"
)

const (
	// freshThreshold: with ignoreIfFresh, a subscription expiring later than
	// now + freshThreshold is returned without a provider call.
	freshThreshold = 24 * time.Hour
	// renewLead: the sweep renews subscriptions expiring within this window.
	renewLead = 1 * time.Hour
	// sweepConcurrency bounds parallel renewals during a sweep.
	sweepConcurrency = 5
	// perMailboxTimeout bounds each renewal so one slow mailbox cannot
	// stall the sweep.
	perMailboxTimeout = 30 * time.Second
)

// SweepFailure is one mailbox's isolated failure during a sweep.
type SweepFailure struct {
	MailboxEmail string `json:"mailbox_email"`
	Error        string `json:"error"`
}

// SweepReport aggregates a whole sweep into one operator-facing result.
type SweepReport struct {
	Scanned  int            `json:"scanned"`
	Renewed  int            `json:"renewed"`
	Failures []SweepFailure `json:"failures,omitempty"`
}

type watchUsecase struct {
	watchRepo      repository.WatchRepository
	credentialRepo repository.CredentialRepository
	tokens         TokenUsecase
	provider       mailboxdomain.MailProvider
	topicName      string
}

func NewWatchUsecase(watchRepo repository.WatchRepository, credentialRepo repository.CredentialRepository, tokens TokenUsecase, provider mailboxdomain.MailProvider, topicName string) WatchUsecase {
	return &watchUsecase{
		watchRepo:      watchRepo,
		credentialRepo: credentialRepo,
		tokens:         tokens,
		provider:       provider,
		topicName:      topicName,
	}
}

func (u *watchUsecase) EnsureWatch(ctx context.Context, mailboxEmail string, ignoreIfFresh bool) (*mailboxdomain.WatchSubscription, error) {
	sub, err := u.watchRepo.FindByEmail(mailboxEmail)
	if err != nil {
		return nil, err
	}

	if ignoreIfFresh && sub != nil && !sub.ExpiresBefore(time.Now().Add(freshThreshold)) {
		return sub, nil
	}

	token, err := u.tokens.GetValidToken(ctx, mailboxEmail)
	if err != nil {
		return nil, err
	}

	result, err := u.provider.Watch(ctx, token, u.topicName)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		sub = &mailboxdomain.WatchSubscription{
			MailboxEmail:  mailboxEmail,
			HistoryCursor: result.HistoryID,
			ExpirationMs:  result.ExpirationMs,
		}
		if err := u.watchRepo.Create(sub); err != nil {
			return nil, err
		}
		log.Printf("[WatchRegistrar] Registered watch for %s (cursor=%d, expires=%d)", mailboxEmail, result.HistoryID, result.ExpirationMs)
		return sub, nil
	}

	// Renewal: the cursor advances only if the provider reports a newer
	// history id; a renewal never moves it backwards.
	if _, err := u.watchRepo.Advance(mailboxEmail, result.HistoryID, result.ExpirationMs, "watch-renewal"); err != nil {
		return nil, err
	}
	log.Printf("[WatchRegistrar] Renewed watch for %s (expires=%d)", mailboxEmail, result.ExpirationMs)

	return u.watchRepo.FindByEmail(mailboxEmail)
}

// SweepExpiring fans out over expiring subscriptions with bounded
// concurrency. One mailbox's failure never blocks its siblings; failures are
// aggregated into a single report.
func (u *watchUsecase) SweepExpiring(ctx context.Context) (*SweepReport, error) {
	cutoff := time.Now().Add(renewLead).UnixMilli()
	subs, err := u.watchRepo.FindExpiringBefore(cutoff)
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub.MailboxEmail)
	}

	// Active mailboxes can end up without a subscription row (registration
	// failed on connect, or the watch was dropped operationally). The sweep
	// picks those up too, so push delivery self-heals.
	creds, err := u.credentialRepo.FindAllActive()
	if err != nil {
		return nil, err
	}
	for _, cred := range creds {
		sub, err := u.watchRepo.FindByEmail(cred.MailboxEmail)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			targets = append(targets, cred.MailboxEmail)
		}
	}

	report := &SweepReport{Scanned: len(targets)}
	if len(targets) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, sweepConcurrency)

	for _, target := range targets {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(mailboxEmail string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			renewCtx, cancel := context.WithTimeout(ctx, perMailboxTimeout)
			defer cancel()

			_, err := u.EnsureWatch(renewCtx, mailboxEmail, true)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, SweepFailure{
					MailboxEmail: mailboxEmail,
					Error:        err.Error(),
				})
				return
			}
			report.Renewed++
		}(target)
	}

	wg.Wait()
	return report, nil
}

// Disconnect tears down push delivery for a mailbox. The provider stop is
// best effort: a mailbox with a dead credential still gets its local
// subscription removed.
func (u *watchUsecase) Disconnect(ctx context.Context, mailboxEmail string) error {
	token, err := u.tokens.GetValidToken(ctx, mailboxEmail)
	if err != nil {
		log.Printf("[WatchRegistrar] Skipping provider stop for %s: %v", mailboxEmail, err)
	} else if err := u.provider.StopWatch(ctx, token); err != nil {
		log.Printf("[WatchRegistrar] Unable to stop watch for %s: %v", mailboxEmail, err)
	}

	if err := u.watchRepo.DeleteByEmail(mailboxEmail); err != nil {
		return err
	}
	log.Printf("[WatchRegistrar] Disconnected watch for %s", mailboxEmail)
	return nil
}

// String renders the report for logs and operator alerts.
func (r *SweepReport) String() string {
	return fmt.Sprintf("scanned=%d renewed=%d failed=%d", r.Scanned, r.Renewed, len(r.Failures))
}

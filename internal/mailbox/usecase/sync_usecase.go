package usecase

import (
	"context"
	"log"
	"sort"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
	"outreach-backend/internal/mailbox/repository"
	"outreach-backend/pkg/apperr"
)

const (
	// Inter-page delay grows on successive pages to respect provider rate
	// limits.
	basePageDelay = 200 * time.Millisecond
	pageDelayStep = 100 * time.Millisecond
	// fetchConcurrency bounds parallel full-message fetches.
	fetchConcurrency = 10
)

type syncUsecase struct {
	watchRepo repository.WatchRepository
	tokens    TokenUsecase
	provider  mailboxdomain.MailProvider
	processor InboundProcessor

	pageDelay func(page int) time.Duration
}

func NewSyncUsecase(watchRepo repository.WatchRepository, tokens TokenUsecase, provider mailboxdomain.MailProvider) SyncUsecase {
	return &syncUsecase{
		watchRepo: watchRepo,
		tokens:    tokens,
		provider:  provider,
		pageDelay: func(page int) time.Duration {
			return basePageDelay + time.Duration(page)*pageDelayStep
		},
	}
}

func (u *syncUsecase) SetInboundProcessor(p InboundProcessor) {
	u.processor = p
}

// Sync pages the provider history to exhaustion, filters self-authored
// messages, dedups by (thread, message) and fetches full candidates. Any
// failure aborts the whole sync so the caller leaves the cursor untouched
// and the next push or sweep re-derives a superset of this delta.
func (u *syncUsecase) Sync(ctx context.Context, mailboxEmail string, fromHistoryID uint64) ([]*mailboxdomain.CandidateMessage, uint64, error) {
	token, err := u.tokens.GetValidToken(ctx, mailboxEmail)
	if err != nil {
		return nil, 0, err
	}

	var refs []mailboxdomain.MessageRef
	seen := make(map[string]bool)
	var maxHistoryID uint64

	pageToken := ""
	for page := 0; ; page++ {
		if page > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(u.pageDelay(page)):
			}
		}

		histPage, err := u.provider.ListHistory(ctx, token, fromHistoryID, pageToken)
		if err != nil {
			return nil, 0, err
		}

		if histPage.HistoryID > maxHistoryID {
			maxHistoryID = histPage.HistoryID
		}

		for _, ref := range histPage.Added {
			// Self-authored messages are not candidate replies
			if hasAnyLabel(ref.Labels, "SENT", "DRAFT") {
				continue
			}
			key := ref.ThreadID + "/" + ref.MessageID
			if seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, ref)
		}

		if histPage.NextPageToken == "" {
			break
		}
		pageToken = histPage.NextPageToken
	}

	if len(refs) == 0 {
		return nil, maxHistoryID, nil
	}

	candidates, err := u.fetchMessages(ctx, token, refs)
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].InternalDate.Before(candidates[j].InternalDate)
	})

	return candidates, maxHistoryID, nil
}

// fetchMessages pulls full messages with bounded concurrency. A single
// failed fetch fails the batch: a partial candidate list would make the
// caller advance the cursor past unprocessed messages.
func (u *syncUsecase) fetchMessages(ctx context.Context, token string, refs []mailboxdomain.MessageRef) ([]*mailboxdomain.CandidateMessage, error) {
	type fetchResult struct {
		msg *mailboxdomain.CandidateMessage
		err error
	}

	resultChan := make(chan fetchResult, len(refs))
	semaphore := make(chan struct{}, fetchConcurrency)

	for _, ref := range refs {
		go func(messageID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			msg, err := u.provider.GetMessage(ctx, token, messageID)
			resultChan <- fetchResult{msg, err}
		}(ref.MessageID)
	}

	candidates := make([]*mailboxdomain.CandidateMessage, 0, len(refs))
	var firstErr error
	for i := 0; i < len(refs); i++ {
		result := <-resultChan
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		candidates = append(candidates, result.msg)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return candidates, nil
}

func (u *syncUsecase) HandleNotification(ctx context.Context, mailboxEmail string, historyID uint64, notificationID string) error {
	sub, err := u.watchRepo.FindByEmail(mailboxEmail)
	if err != nil {
		return err
	}
	if sub == nil {
		return apperr.NotFound("watch subscription")
	}

	if historyID != 0 && historyID <= sub.HistoryCursor {
		// Duplicate or out-of-order push; the delta was already applied
		log.Printf("[HistorySync] Skipping stale push for %s (historyId %d <= cursor %d)", mailboxEmail, historyID, sub.HistoryCursor)
		return nil
	}

	candidates, syncedTo, err := u.Sync(ctx, mailboxEmail, sub.HistoryCursor)
	if err != nil {
		// Cursor stays put; the next push or sweep re-derives the delta
		return err
	}

	if u.processor != nil && len(candidates) > 0 {
		if err := u.processor.ProcessInbound(ctx, mailboxEmail, candidates); err != nil {
			return err
		}
	}

	advanceTo := historyID
	if syncedTo > advanceTo {
		advanceTo = syncedTo
	}
	if advanceTo == 0 {
		return nil
	}

	advanced, err := u.watchRepo.Advance(mailboxEmail, advanceTo, 0, notificationID)
	if err != nil {
		return err
	}
	if advanced {
		log.Printf("[HistorySync] %s: %d candidates, cursor -> %d", mailboxEmail, len(candidates), advanceTo)
	}
	return nil
}

func hasAnyLabel(labels []string, targets ...string) bool {
	for _, l := range labels {
		for _, t := range targets {
			if l == t {
				return true
			}
		}
	}
	return false
}

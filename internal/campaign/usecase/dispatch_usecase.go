package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	campaigndomain "outreach-backend/internal/campaign/domain"
	"outreach-backend/internal/campaign/repository"
	mailboxdomain "outreach-backend/internal/mailbox/domain"
)

// dispatchBatchSize caps how many due messages one sweep picks up.
const dispatchBatchSize = 50

// dispatchUsecase sends due prospect messages. It is the producer of the
// sequence_prospect_message ids that the reply-attribution path later
// resolves tracking tags against.
type dispatchUsecase struct {
	messageRepo     repository.ProspectMessageRepository
	prospectRepo    repository.ProspectRepository
	eventRepo       repository.EventRepository
	analytics       AnalyticsUsecase
	tokens          TokenProvider
	provider        mailboxdomain.MailProvider
	trackingBaseURL string
}

func NewDispatchUsecase(messageRepo repository.ProspectMessageRepository, prospectRepo repository.ProspectRepository, eventRepo repository.EventRepository, analytics AnalyticsUsecase, tokens TokenProvider, provider mailboxdomain.MailProvider, trackingBaseURL string) DispatchUsecase {
	return &dispatchUsecase{
		messageRepo:     messageRepo,
		prospectRepo:    prospectRepo,
		eventRepo:       eventRepo,
		analytics:       analytics,
		tokens:          tokens,
		provider:        provider,
		trackingBaseURL: trackingBaseURL,
	}
}

func (u *dispatchUsecase) DispatchDue(ctx context.Context) (*DispatchReport, error) {
	due, err := u.messageRepo.FindDue(time.Now(), dispatchBatchSize)
	if err != nil {
		return nil, err
	}

	report := &DispatchReport{Due: len(due)}
	for _, msg := range due {
		if err := u.dispatchOne(ctx, msg, report); err != nil {
			// Isolated: the message stays scheduled and the next sweep
			// retries it
			log.Printf("[Dispatch] Failed to send %s: %v", msg.ID, err)
			report.Failed++
		}
	}
	return report, nil
}

func (u *dispatchUsecase) dispatchOne(ctx context.Context, msg *campaigndomain.SequenceProspectMessage, report *DispatchReport) error {
	prospect, err := u.prospectRepo.FindByID(msg.SequenceProspectID)
	if err != nil {
		return err
	}
	if prospect == nil {
		return fmt.Errorf("prospect %s not found", msg.SequenceProspectID)
	}

	skip, reason, err := u.shouldSkip(prospect)
	if err != nil {
		return err
	}
	if skip {
		if err := u.messageRepo.MarkSkipped(msg.ID); err != nil {
			return err
		}
		report.Skipped++
		return u.recordSend(msg, campaigndomain.MessageStatusSkipped, reason)
	}

	token, err := u.tokens.GetValidToken(ctx, msg.MailboxEmail)
	if err != nil {
		return err
	}

	threadID, err := u.provider.SendMessage(ctx, token, &mailboxdomain.OutboundMail{
		FromEmail: msg.MailboxEmail,
		To:        prospect.Email,
		Subject:   msg.Subject,
		BodyHTML:  u.injectTrackingPixel(msg.BodyHTML, msg.ID),
	})
	if err != nil {
		return err
	}

	now := time.Now()
	if err := u.messageRepo.MarkSent(msg.ID, threadID, now); err != nil {
		return err
	}
	report.Sent++
	return u.recordSend(msg, campaigndomain.MessageStatusSent, "")
}

// shouldSkip applies the dispatch exclusions: unsubscribed prospects and
// prospects whose earlier message already bounced are not contacted again.
func (u *dispatchUsecase) shouldSkip(prospect *campaigndomain.SequenceProspect) (bool, string, error) {
	if prospect.Unsubscribed {
		return true, "prospect unsubscribed", nil
	}
	bounced, err := u.eventRepo.HasBouncedForProspect(prospect.ID)
	if err != nil {
		return false, "", err
	}
	if bounced {
		return true, "earlier message bounced", nil
	}
	return false, "", nil
}

func (u *dispatchUsecase) recordSend(msg *campaigndomain.SequenceProspectMessage, status, detail string) error {
	return u.analytics.RecordEvent(&campaigndomain.CampaignEvent{
		AccountID:                 msg.AccountID,
		SequenceID:                msg.SequenceID,
		SequenceStepID:            msg.SequenceStepID,
		SequenceProspectID:        msg.SequenceProspectID,
		ContactID:                 msg.ContactID,
		SequenceProspectMessageID: msg.ID,
		ActionType:                campaigndomain.ActionSend,
		MessageStatus:             status,
		Detail:                    detail,
	})
}

// injectTrackingPixel appends the invisible open-tracking tag carrying the
// outbound message id. Replies quoting the body carry the tag back, which
// is what makes reply attribution work.
func (u *dispatchUsecase) injectTrackingPixel(bodyHTML, spmsID string) string {
	pixel := fmt.Sprintf(`<img src="%s/track/open?spmsId=%s" width="1" height="1" alt="" style="display:none">`, u.trackingBaseURL, spmsID)
	if idx := strings.LastIndex(strings.ToLower(bodyHTML), "</body>"); idx >= 0 {
		return bodyHTML[:idx] + pixel + bodyHTML[idx:]
	}
	return bodyHTML + pixel
}

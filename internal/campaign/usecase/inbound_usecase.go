package usecase

import (
	"context"
	"log"

	campaigndomain "outreach-backend/internal/campaign/domain"
	"outreach-backend/internal/campaign/repository"
	mailboxdomain "outreach-backend/internal/mailbox/domain"
	"outreach-backend/pkg/apperr"
)

// inboundUsecase turns synced candidate messages into attributed campaign
// events. Attribution failures are expected (out-of-band mail) and are
// dropped, never stored unattributed.
type inboundUsecase struct {
	classifier  *Classifier
	analytics   AnalyticsUsecase
	messageRepo repository.ProspectMessageRepository
	tokens      TokenProvider
	provider    mailboxdomain.MailProvider
}

func NewInboundUsecase(classifier *Classifier, analytics AnalyticsUsecase, messageRepo repository.ProspectMessageRepository, tokens TokenProvider, provider mailboxdomain.MailProvider) InboundUsecase {
	return &inboundUsecase{
		classifier:  classifier,
		analytics:   analytics,
		messageRepo: messageRepo,
		tokens:      tokens,
		provider:    provider,
	}
}

func (u *inboundUsecase) ProcessInbound(ctx context.Context, mailboxEmail string, msgs []*mailboxdomain.CandidateMessage) error {
	for _, msg := range msgs {
		if err := u.processOne(ctx, mailboxEmail, msg); err != nil {
			if apperr.IsAttribution(err) {
				// Expected: mail that is not ours to count
				log.Printf("[ReplyAttribution] Dropping %s: %v", msg.MessageID, err)
				continue
			}
			return err
		}
	}
	return nil
}

func (u *inboundUsecase) processOne(ctx context.Context, mailboxEmail string, msg *mailboxdomain.CandidateMessage) error {
	cls := u.classifier.Classify(msg)
	if cls.Kind == ClassIgnorable {
		return apperr.Attribution("no tracking tag found")
	}

	outbound, err := u.resolveOutbound(cls, msg)
	if err != nil {
		return err
	}

	event := &campaigndomain.CampaignEvent{
		AccountID:                 outbound.AccountID,
		SequenceID:                outbound.SequenceID,
		SequenceStepID:            outbound.SequenceStepID,
		SequenceProspectID:        outbound.SequenceProspectID,
		ContactID:                 outbound.ContactID,
		SequenceProspectMessageID: outbound.ID,
		OccurredAt:                u.classifier.MessageDate(msg),
	}

	switch cls.Kind {
	case ClassBounce:
		event.ActionType = campaigndomain.ActionReply
		event.HasBounced = true
		event.Detail = "delivery failure notice"
	case ClassAutoReply:
		event.ActionType = campaigndomain.ActionAutoReply
	case ClassReply:
		event.ActionType = campaigndomain.ActionReply
		// The failure notice for an outbound message can land in its
		// thread before or after a genuine reply; check the whole thread
		// so a bounced conversation never counts as replied.
		if u.threadHasBounce(ctx, mailboxEmail, msg) {
			event.HasBounced = true
			event.Detail = "reply in bounced thread"
		}
	}

	return u.analytics.RecordEvent(event)
}

// resolveOutbound maps a classification back to the outbound message row.
// The tracking tag is authoritative; bounces without a tag fall back to the
// thread the bounce landed in.
func (u *inboundUsecase) resolveOutbound(cls Classification, msg *mailboxdomain.CandidateMessage) (*campaigndomain.SequenceProspectMessage, error) {
	if cls.SequenceProspectMessageID != "" {
		outbound, err := u.messageRepo.FindByID(cls.SequenceProspectMessageID)
		if err != nil {
			return nil, err
		}
		if outbound != nil {
			return outbound, nil
		}
	}

	if cls.Kind == ClassBounce {
		outbound, err := u.messageRepo.FindByThreadID(msg.ThreadID)
		if err != nil {
			return nil, err
		}
		if outbound != nil {
			return outbound, nil
		}
	}

	return nil, apperr.Attribution("tracking tag does not resolve to an outbound message")
}

func (u *inboundUsecase) threadHasBounce(ctx context.Context, mailboxEmail string, msg *mailboxdomain.CandidateMessage) bool {
	token, err := u.tokens.GetValidToken(ctx, mailboxEmail)
	if err != nil {
		log.Printf("[ReplyAttribution] Thread bounce check skipped for %s: %v", msg.ThreadID, err)
		return false
	}

	threadMsgs, err := u.provider.ListThreadMessages(ctx, token, msg.ThreadID)
	if err != nil {
		log.Printf("[ReplyAttribution] Unable to inspect thread %s: %v", msg.ThreadID, err)
		return false
	}

	return u.classifier.HasBouncedMessage(threadMsgs)
}

package usecase

import (
	"sort"

	campaigndomain "outreach-backend/internal/campaign/domain"
	"outreach-backend/internal/campaign/repository"
	"outreach-backend/pkg/apperr"
)

type analyticsUsecase struct {
	eventRepo    repository.EventRepository
	messageRepo  repository.ProspectMessageRepository
	prospectRepo repository.ProspectRepository
}

func NewAnalyticsUsecase(eventRepo repository.EventRepository, messageRepo repository.ProspectMessageRepository, prospectRepo repository.ProspectRepository) AnalyticsUsecase {
	return &analyticsUsecase{
		eventRepo:    eventRepo,
		messageRepo:  messageRepo,
		prospectRepo: prospectRepo,
	}
}

func (u *analyticsUsecase) RecordEvent(event *campaigndomain.CampaignEvent) error {
	return u.eventRepo.Create(event)
}

func (u *analyticsUsecase) RecordOpen(sequenceProspectMessageID string) error {
	msg, err := u.messageRepo.FindByID(sequenceProspectMessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperr.Attribution("open refers to unknown outbound message")
	}

	return u.eventRepo.Create(&campaigndomain.CampaignEvent{
		AccountID:                 msg.AccountID,
		SequenceID:                msg.SequenceID,
		SequenceStepID:            msg.SequenceStepID,
		SequenceProspectID:        msg.SequenceProspectID,
		ContactID:                 msg.ContactID,
		SequenceProspectMessageID: msg.ID,
		ActionType:                campaigndomain.ActionOpen,
	})
}

func (u *analyticsUsecase) RecordUnsubscribe(sequenceProspectID string) error {
	prospect, err := u.prospectRepo.FindByID(sequenceProspectID)
	if err != nil {
		return err
	}
	if prospect == nil {
		return apperr.NotFound("sequence prospect")
	}

	if err := u.prospectRepo.MarkUnsubscribed(prospect.ID); err != nil {
		return err
	}

	return u.eventRepo.Create(&campaigndomain.CampaignEvent{
		SequenceID:         prospect.SequenceID,
		SequenceProspectID: prospect.ID,
		ContactID:          prospect.ContactID,
		ActionType:         campaigndomain.ActionUnsubscribe,
	})
}

// GetSequenceAnalytics computes per-step rollups by replaying events in
// creation order. Unique metrics keep a dedup set keyed by outbound message
// id and count only the first occurrence, so a thread of N replies
// contributes one unit.
func (u *analyticsUsecase) GetSequenceAnalytics(sequenceID string) (map[string]*StepAnalytics, error) {
	events, err := u.eventRepo.FindBySequence(sequenceID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*StepAnalytics)
	openedSeen := make(map[string]bool)
	repliedSeen := make(map[string]bool)
	bouncedSeen := make(map[string]bool)

	// A delivery-failure notice can surface after a genuine reply in the
	// same thread, so collect bounced message ids up front. Any reply
	// attributed to a bounced outbound message is suppressed regardless of
	// the order the events were recorded in.
	bouncedKeys := bouncedMessageKeys(events)

	step := func(stepID string) *StepAnalytics {
		if s, ok := result[stepID]; ok {
			return s
		}
		s := &StepAnalytics{}
		result[stepID] = s
		return s
	}

	for _, event := range events {
		s := step(event.SequenceStepID)
		key := event.SequenceProspectMessageID

		switch event.ActionType {
		case campaigndomain.ActionSend:
			if event.MessageStatus == campaigndomain.MessageStatusSkipped {
				s.Skipped++
			} else {
				s.Contacted++
			}
		case campaigndomain.ActionOpen:
			s.Opened++
			if key != "" && !openedSeen[key] {
				openedSeen[key] = true
				s.UniqueOpened++
			}
		case campaigndomain.ActionReply, campaigndomain.ActionAutoReply:
			if event.HasBounced {
				// Bounced replies never count as replies; they feed the
				// bounced bucket once per outbound message.
				if key != "" && !bouncedSeen[key] {
					bouncedSeen[key] = true
					s.Bounced++
				}
				continue
			}
			if key != "" && bouncedKeys[key] {
				continue
			}
			s.Replied++
			if key != "" && !repliedSeen[key] {
				repliedSeen[key] = true
				s.UniqueReplied++
			}
		}
	}

	for _, s := range result {
		s.Delivered = s.Contacted - s.Bounced
	}

	return result, nil
}

func (u *analyticsUsecase) GetSequenceOpenAnalytics(sequenceID string, descending bool) ([]*ProspectActivity, error) {
	events, err := u.eventRepo.FindBySequenceAndAction(sequenceID, campaigndomain.ActionOpen)
	if err != nil {
		return nil, err
	}
	return toActivities(events, descending, nil), nil
}

func (u *analyticsUsecase) GetSequenceReplyAnalytics(sequenceID string, descending bool) ([]*ProspectActivity, error) {
	events, err := u.eventRepo.FindBySequenceAndAction(sequenceID, campaigndomain.ActionReply)
	if err != nil {
		return nil, err
	}
	return toActivities(events, descending, bouncedMessageKeys(events)), nil
}

// bouncedMessageKeys collects the outbound message ids that ever bounced.
func bouncedMessageKeys(events []*campaigndomain.CampaignEvent) map[string]bool {
	keys := make(map[string]bool)
	for _, event := range events {
		if event.HasBounced && event.SequenceProspectMessageID != "" {
			keys[event.SequenceProspectMessageID] = true
		}
	}
	return keys
}

func toActivities(events []*campaigndomain.CampaignEvent, descending bool, excludeKeys map[string]bool) []*ProspectActivity {
	activities := make([]*ProspectActivity, 0, len(events))
	for _, event := range events {
		if event.HasBounced || excludeKeys[event.SequenceProspectMessageID] {
			continue
		}
		activities = append(activities, &ProspectActivity{
			SequenceProspectID:        event.SequenceProspectID,
			ContactID:                 event.ContactID,
			SequenceStepID:            event.SequenceStepID,
			SequenceProspectMessageID: event.SequenceProspectMessageID,
			OccurredAt:                event.OccurredAt,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		if descending {
			return activities[i].OccurredAt.After(activities[j].OccurredAt)
		}
		return activities[i].OccurredAt.Before(activities[j].OccurredAt)
	})

	return activities
}

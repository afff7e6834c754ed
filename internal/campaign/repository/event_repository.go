package repository

import (
	"time"

	campaigndomain "outreach-backend/internal/campaign/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// eventRepository implements EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new instance of eventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{
		db: db,
	}
}

func (r *eventRepository) Create(event *campaigndomain.CampaignEvent) error {
	event.ID = uuid.New().String()
	if event.CreatedOn.IsZero() {
		event.CreatedOn = time.Now()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = event.CreatedOn
	}
	return r.db.Create(event).Error
}

func (r *eventRepository) FindBySequence(sequenceID string) ([]*campaigndomain.CampaignEvent, error) {
	var events []*campaigndomain.CampaignEvent
	err := r.db.Where("sequence_id = ?", sequenceID).
		Order("created_on asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) FindBySequenceAndAction(sequenceID string, action campaigndomain.ActionType) ([]*campaigndomain.CampaignEvent, error) {
	var events []*campaigndomain.CampaignEvent
	err := r.db.Where("sequence_id = ? AND action_type = ?", sequenceID, action).
		Order("created_on asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) HasBouncedForProspect(sequenceProspectID string) (bool, error) {
	var count int64
	err := r.db.Model(&campaigndomain.CampaignEvent{}).
		Where("sequence_prospect_id = ? AND has_bounced = ?", sequenceProspectID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package repository

import (
	"errors"
	"time"

	campaigndomain "outreach-backend/internal/campaign/domain"

	"gorm.io/gorm"
)

// prospectMessageRepository implements ProspectMessageRepository interface
type prospectMessageRepository struct {
	db *gorm.DB
}

// NewProspectMessageRepository creates a new instance of prospectMessageRepository
func NewProspectMessageRepository(db *gorm.DB) ProspectMessageRepository {
	return &prospectMessageRepository{
		db: db,
	}
}

func (r *prospectMessageRepository) FindDue(now time.Time, limit int) ([]*campaigndomain.SequenceProspectMessage, error) {
	var messages []*campaigndomain.SequenceProspectMessage
	err := r.db.Where("status = ? AND send_at <= ?", campaigndomain.MessageStatusScheduled, now).
		Order("send_at asc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *prospectMessageRepository) FindByID(id string) (*campaigndomain.SequenceProspectMessage, error) {
	var msg campaigndomain.SequenceProspectMessage
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *prospectMessageRepository) FindByThreadID(threadID string) (*campaigndomain.SequenceProspectMessage, error) {
	var msg campaigndomain.SequenceProspectMessage
	err := r.db.Where("thread_id = ?", threadID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *prospectMessageRepository) MarkSent(id, threadID string, sentAt time.Time) error {
	return r.db.Model(&campaigndomain.SequenceProspectMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     campaigndomain.MessageStatusSent,
			"thread_id":  threadID,
			"sent_at":    sentAt,
			"updated_at": time.Now(),
		}).Error
}

func (r *prospectMessageRepository) MarkSkipped(id string) error {
	return r.db.Model(&campaigndomain.SequenceProspectMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     campaigndomain.MessageStatusSkipped,
			"updated_at": time.Now(),
		}).Error
}

// prospectRepository implements ProspectRepository interface
type prospectRepository struct {
	db *gorm.DB
}

// NewProspectRepository creates a new instance of prospectRepository
func NewProspectRepository(db *gorm.DB) ProspectRepository {
	return &prospectRepository{
		db: db,
	}
}

func (r *prospectRepository) FindByID(id string) (*campaigndomain.SequenceProspect, error) {
	var prospect campaigndomain.SequenceProspect
	err := r.db.Where("id = ?", id).First(&prospect).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prospect, nil
}

func (r *prospectRepository) MarkUnsubscribed(id string) error {
	return r.db.Model(&campaigndomain.SequenceProspect{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unsubscribed": true,
			"updated_at":   time.Now(),
		}).Error
}

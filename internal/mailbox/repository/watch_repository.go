package repository

import (
	"errors"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// watchRepository implements WatchRepository interface
type watchRepository struct {
	db *gorm.DB
}

// NewWatchRepository creates a new instance of watchRepository
func NewWatchRepository(db *gorm.DB) WatchRepository {
	return &watchRepository{
		db: db,
	}
}

func (r *watchRepository) Create(sub *mailboxdomain.WatchSubscription) error {
	sub.ID = uuid.New().String()
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = time.Now()
	return r.db.Create(sub).Error
}

func (r *watchRepository) FindByEmail(mailboxEmail string) (*mailboxdomain.WatchSubscription, error) {
	var sub mailboxdomain.WatchSubscription
	err := r.db.Where("mailbox_email = ?", mailboxEmail).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *watchRepository) FindExpiringBefore(expirationMs int64) ([]*mailboxdomain.WatchSubscription, error) {
	var subs []*mailboxdomain.WatchSubscription
	err := r.db.Where("expiration_ms <= ?", expirationMs).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *watchRepository) DeleteByEmail(mailboxEmail string) error {
	return r.db.Where("mailbox_email = ?", mailboxEmail).Delete(&mailboxdomain.WatchSubscription{}).Error
}

// Advance serializes concurrent syncs for the same mailbox around the cursor
// update: a row lock plus the strictly-greater check make the cursor
// monotonically non-decreasing. A losing concurrent sync simply sees
// advanced=false and re-derives a smaller delta next time.
func (r *watchRepository) Advance(mailboxEmail string, newCursor uint64, expirationMs int64, notificationID string) (bool, error) {
	advanced := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var sub mailboxdomain.WatchSubscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mailbox_email = ?", mailboxEmail).
			First(&sub).Error; err != nil {
			return err
		}

		changed := false
		if newCursor > sub.HistoryCursor {
			sub.PushBackup(mailboxdomain.CursorBackupEntry{
				Cursor:         sub.HistoryCursor,
				NotificationID: notificationID,
				ReceivedAt:     time.Now(),
			})
			sub.HistoryCursor = newCursor
			advanced = true
			changed = true
		}
		if expirationMs > sub.ExpirationMs {
			sub.ExpirationMs = expirationMs
			changed = true
		}
		if !changed {
			// Duplicate or out-of-order push; nothing to store
			return nil
		}

		sub.UpdatedAt = time.Now()
		return tx.Save(&sub).Error
	})
	return advanced, err
}

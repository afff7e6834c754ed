package repository

import (
	"errors"
	"time"

	mailboxdomain "outreach-backend/internal/mailbox/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new instance of credentialRepository
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

func (r *credentialRepository) Upsert(cred *mailboxdomain.MailboxCredential) error {
	var existing mailboxdomain.MailboxCredential
	err := r.db.Where("mailbox_email = ?", cred.MailboxEmail).First(&existing).Error

	now := time.Now()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cred.ID = uuid.New().String()
		if cred.Status == "" {
			cred.Status = mailboxdomain.CredentialStatusActive
		}
		cred.CreatedAt = now
		cred.UpdatedAt = now
		return r.db.Create(cred).Error
	} else if err != nil {
		return err
	}

	// A fresh connect replaces the whole credential and clears any
	// reauth_required state.
	existing.AccessToken = cred.AccessToken
	existing.RefreshToken = cred.RefreshToken
	existing.ExpiryMs = cred.ExpiryMs
	existing.Scope = cred.Scope
	existing.Status = mailboxdomain.CredentialStatusActive
	existing.UpdatedAt = now
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	*cred = existing
	return nil
}

func (r *credentialRepository) FindByEmail(mailboxEmail string) (*mailboxdomain.MailboxCredential, error) {
	var cred mailboxdomain.MailboxCredential
	err := r.db.Where("mailbox_email = ?", mailboxEmail).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) FindAllActive() ([]*mailboxdomain.MailboxCredential, error) {
	var creds []*mailboxdomain.MailboxCredential
	err := r.db.Where("status = ?", mailboxdomain.CredentialStatusActive).Find(&creds).Error
	if err != nil {
		return nil, err
	}
	return creds, nil
}

func (r *credentialRepository) UpdateTokens(mailboxEmail, accessToken string, expiryMs int64) error {
	return r.db.Model(&mailboxdomain.MailboxCredential{}).
		Where("mailbox_email = ?", mailboxEmail).
		Updates(map[string]interface{}{
			"access_token": accessToken,
			"expiry_ms":    expiryMs,
			"updated_at":   time.Now(),
		}).Error
}

func (r *credentialRepository) MarkStatus(mailboxEmail, status string) error {
	return r.db.Model(&mailboxdomain.MailboxCredential{}).
		Where("mailbox_email = ?", mailboxEmail).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

package domain

import "time"

const (
	CredentialStatusActive = "active"
	// CredentialStatusReauthRequired means the provider rejected the refresh
	// token. The mailbox is unusable until the user re-authorizes; we never
	// retry the refresh automatically.
	CredentialStatusReauthRequired = "reauth_required"
	// CredentialStatusDisconnected means the user detached the mailbox.
	// Disconnected credentials are skipped by every background loop.
	CredentialStatusDisconnected = "disconnected"
)

// MailboxCredential holds the OAuth credential for one connected mailbox.
// One active refresh token per mailbox; tokens are mutated only on refresh.
type MailboxCredential struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	MailboxEmail string    `json:"mailbox_email" gorm:"uniqueIndex;not null"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiryMs     int64     `json:"expiry_ms"` // access token expiry, epoch milliseconds
	Scope        string    `json:"scope"`
	Status       string    `json:"status" gorm:"default:'active'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires before now + margin.
func (c *MailboxCredential) ExpiresWithin(margin time.Duration) bool {
	return c.ExpiryMs <= time.Now().Add(margin).UnixMilli()
}

package repository

import (
	mailboxdomain "outreach-backend/internal/mailbox/domain"
)

// CredentialRepository defines the interface for mailbox credential storage.
// Token fields are mutated only by the token lifecycle manager.
type CredentialRepository interface {
	// Upsert stores or replaces the credential for a mailbox
	Upsert(cred *mailboxdomain.MailboxCredential) error
	// FindByEmail returns (nil, nil) when no credential exists
	FindByEmail(mailboxEmail string) (*mailboxdomain.MailboxCredential, error)
	// FindAllActive returns every credential not awaiting re-authorization
	FindAllActive() ([]*mailboxdomain.MailboxCredential, error)
	// UpdateTokens persists a rotated access token and its expiry
	UpdateTokens(mailboxEmail, accessToken string, expiryMs int64) error
	// MarkStatus flips the credential status (active / reauth_required)
	MarkStatus(mailboxEmail, status string) error
}

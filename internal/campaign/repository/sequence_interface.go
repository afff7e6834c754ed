package repository

import (
	"time"

	campaigndomain "outreach-backend/internal/campaign/domain"
)

// ProspectMessageRepository defines the interface for outbound prospect
// message storage — the dispatch queue and the attribution lookup table.
type ProspectMessageRepository interface {
	// FindDue returns scheduled messages whose send time has passed
	FindDue(now time.Time, limit int) ([]*campaigndomain.SequenceProspectMessage, error)
	// FindByID returns (nil, nil) when no message exists
	FindByID(id string) (*campaigndomain.SequenceProspectMessage, error)
	// FindByThreadID resolves a provider thread back to the outbound
	// message that started it; (nil, nil) when unknown
	FindByThreadID(threadID string) (*campaigndomain.SequenceProspectMessage, error)
	// MarkSent records a successful dispatch and the assigned thread
	MarkSent(id, threadID string, sentAt time.Time) error
	// MarkSkipped records an excluded dispatch
	MarkSkipped(id string) error
}

// ProspectRepository defines the interface for sequence prospect storage.
type ProspectRepository interface {
	// FindByID returns (nil, nil) when no prospect exists
	FindByID(id string) (*campaigndomain.SequenceProspect, error)
	// MarkUnsubscribed flags the prospect; dispatch honors the flag
	MarkUnsubscribed(id string) error
}

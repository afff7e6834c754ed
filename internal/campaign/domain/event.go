package domain

import "time"

// ActionType discriminates campaign event rows.
type ActionType string

const (
	ActionSend        ActionType = "send"
	ActionOpen        ActionType = "open"
	ActionReply       ActionType = "reply"
	ActionAutoReply   ActionType = "auto_reply"
	ActionUnsubscribe ActionType = "unsubscribe"
)

// CampaignEvent is one observed occurrence: a send, open, reply or
// unsubscribe against a specific outbound message. Append-only and immutable
// once written; duplicate occurrences get their own rows and rollups
// deduplicate at query time.
type CampaignEvent struct {
	ID                        string     `json:"id" gorm:"primaryKey"`
	AccountID                 string     `json:"account_id" gorm:"index:idx_account_sequence"`
	SequenceID                string     `json:"sequence_id" gorm:"index:idx_account_sequence;index:idx_sequence_step;not null"`
	SequenceStepID            string     `json:"sequence_step_id" gorm:"index:idx_sequence_step"`
	SequenceProspectID        string     `json:"sequence_prospect_id" gorm:"index"`
	ContactID                 string     `json:"contact_id"`
	SequenceProspectMessageID string     `json:"sequence_prospect_message_id" gorm:"index"`
	ActionType                ActionType `json:"action_type" gorm:"not null"`
	MessageStatus             string     `json:"message_status"` // sent / skipped, for send events
	HasBounced                bool       `json:"has_bounced" gorm:"default:false"`
	Detail                    string     `json:"detail"`
	// OccurredAt is the best-effort Date header of the triggering message.
	// Storage time (CreatedOn) is the definitive fallback when the header
	// is missing or malformed.
	OccurredAt time.Time `json:"occurred_at"`
	CreatedOn  time.Time `json:"created_on" gorm:"index"`
}

package domain

import "time"

const (
	SequenceStatusDraft  = "draft"
	SequenceStatusActive = "active"
	SequenceStatusPaused = "paused"
)

// Sequence is an automated multi-step outbound campaign.
type Sequence struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	AccountID string    `json:"account_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Status    string    `json:"status" gorm:"default:'draft'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SequenceStep is one email template within a sequence.
type SequenceStep struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	SequenceID string    `json:"sequence_id" gorm:"index;not null"`
	StepNumber int       `json:"step_number" gorm:"not null"`
	Subject    string    `json:"subject"`
	BodyHTML   string    `json:"body_html" gorm:"type:text"`
	DelayDays  int       `json:"delay_days" gorm:"default:2"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SequenceProspect links a contact into a sequence.
type SequenceProspect struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	SequenceID   string    `json:"sequence_id" gorm:"index;not null"`
	ContactID    string    `json:"contact_id" gorm:"index;not null"`
	Email        string    `json:"email" gorm:"not null"`
	Name         string    `json:"name"`
	Unsubscribed bool      `json:"unsubscribed" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	MessageStatusScheduled = "scheduled"
	MessageStatusSent      = "sent"
	MessageStatusSkipped   = "skipped"
)

// SequenceProspectMessage is one concrete outbound message: a (step,
// prospect) pair scheduled for dispatch. Its id travels inside the tracking
// tag and is what replies and opens attribute back to.
type SequenceProspectMessage struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	AccountID          string     `json:"account_id" gorm:"index"`
	SequenceID         string     `json:"sequence_id" gorm:"index;not null"`
	SequenceStepID     string     `json:"sequence_step_id" gorm:"index;not null"`
	SequenceProspectID string     `json:"sequence_prospect_id" gorm:"index;not null"`
	ContactID          string     `json:"contact_id"`
	MailboxEmail       string     `json:"mailbox_email" gorm:"not null"` // sending mailbox
	ThreadID           string     `json:"thread_id" gorm:"index"`        // provider thread, set after send
	Subject            string     `json:"subject"`
	BodyHTML           string     `json:"body_html" gorm:"type:text"`
	Status             string     `json:"status" gorm:"default:'scheduled'"`
	SendAt             time.Time  `json:"send_at" gorm:"index"`
	SentAt             *time.Time `json:"sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

package usecase

import (
	"context"
	"time"

	campaigndomain "outreach-backend/internal/campaign/domain"
	mailboxdomain "outreach-backend/internal/mailbox/domain"
)

// TokenProvider supplies a currently valid access token for a mailbox.
// Satisfied by the mailbox token lifecycle usecase.
type TokenProvider interface {
	GetValidToken(ctx context.Context, mailboxEmail string) (string, error)
}

// StepAnalytics is the per-step rollup. Delivered = Contacted - Bounced
// always holds; unique metrics count each outbound message at most once no
// matter how many raw events its thread generated.
type StepAnalytics struct {
	Contacted     int `json:"contacted"`
	Delivered     int `json:"delivered"`
	Bounced       int `json:"bounced"`
	Opened        int `json:"opened"`
	UniqueOpened  int `json:"unique_opened"`
	Replied       int `json:"replied"`
	UniqueReplied int `json:"unique_replied"`
	Skipped       int `json:"skipped"`
}

// ProspectActivity is one row of a per-prospect breakdown.
type ProspectActivity struct {
	SequenceProspectID        string    `json:"sequence_prospect_id"`
	ContactID                 string    `json:"contact_id"`
	SequenceStepID            string    `json:"sequence_step_id"`
	SequenceProspectMessageID string    `json:"sequence_prospect_message_id"`
	OccurredAt                time.Time `json:"occurred_at"`
}

// AnalyticsUsecase records campaign events and computes rollups.
type AnalyticsUsecase interface {
	// RecordEvent appends one immutable event; never overwrites
	RecordEvent(event *campaigndomain.CampaignEvent) error
	// RecordOpen records an open against an outbound message id (tracking
	// pixel hit)
	RecordOpen(sequenceProspectMessageID string) error
	// RecordUnsubscribe flags the prospect and records the event
	RecordUnsubscribe(sequenceProspectID string) error
	// GetSequenceAnalytics returns per-step rollups keyed by step id
	GetSequenceAnalytics(sequenceID string) (map[string]*StepAnalytics, error)
	// GetSequenceOpenAnalytics returns per-prospect opens sorted by
	// occurrence time, ascending unless descending is requested
	GetSequenceOpenAnalytics(sequenceID string, descending bool) ([]*ProspectActivity, error)
	// GetSequenceReplyAnalytics returns per-prospect genuine replies
	GetSequenceReplyAnalytics(sequenceID string, descending bool) ([]*ProspectActivity, error)
}

// DispatchReport summarizes one dispatch sweep.
type DispatchReport struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// DispatchUsecase sends due prospect messages.
type DispatchUsecase interface {
	DispatchDue(ctx context.Context) (*DispatchReport, error)
}

// InboundUsecase classifies synced candidates and records attributed events.
// It implements the mailbox layer's InboundProcessor contract.
type InboundUsecase interface {
	ProcessInbound(ctx context.Context, mailboxEmail string, msgs []*mailboxdomain.CandidateMessage) error
}

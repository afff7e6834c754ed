package repository

import (
	campaigndomain "outreach-backend/internal/campaign/domain"
)

// EventRepository defines the interface for campaign event storage.
// Events are append-only; there are no update or delete operations.
type EventRepository interface {
	// Create appends one immutable event row
	Create(event *campaigndomain.CampaignEvent) error
	// FindBySequence returns all events for a sequence ordered by
	// created_on ascending
	FindBySequence(sequenceID string) ([]*campaigndomain.CampaignEvent, error)
	// FindBySequenceAndAction filters on action type, ordered by
	// created_on ascending
	FindBySequenceAndAction(sequenceID string, action campaigndomain.ActionType) ([]*campaigndomain.CampaignEvent, error)
	// HasBouncedForProspect reports whether any event for the prospect
	// carries the bounced flag
	HasBouncedForProspect(sequenceProspectID string) (bool, error)
}

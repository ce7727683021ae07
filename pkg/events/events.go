// Package events defines the audit events emitted on flow lifecycle changes.
package events

import (
	"time"

	"github.com/voicetree/voicetree/pkg/models"
)

type EventType string

// Topic carries every audit event.
const Topic = "voicetree.audit"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowCreatedEvent     EventType = "flow.created"
	FlowDeletedEvent     EventType = "flow.deleted"
	DraftCreatedEvent    EventType = "version.draft.created"
	VersionPromotedEvent EventType = "version.promoted"
	VersionArchivedEvent EventType = "version.archived"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type FlowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (f FlowCreated) GetType() EventType {
	return FlowCreatedEvent
}

type FlowDeleted struct {
	BaseEvent
}

func (f FlowDeleted) GetType() EventType {
	return FlowDeletedEvent
}

type DraftCreated struct {
	BaseEvent

	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	ClonedFromID  string `json:"cloned_from_id,omitempty"`
}

func (d DraftCreated) GetType() EventType {
	return DraftCreatedEvent
}

type VersionPromoted struct {
	BaseEvent

	VersionID     string               `json:"version_id"`
	VersionNumber int                  `json:"version_number"`
	Target        models.VersionStatus `json:"target"`
	PriorStatus   models.VersionStatus `json:"prior_status"`
	PromotedBy    string               `json:"promoted_by,omitempty"`
	DemotedID     string               `json:"demoted_id,omitempty"`
}

func (v VersionPromoted) GetType() EventType {
	return VersionPromotedEvent
}

type VersionArchived struct {
	BaseEvent

	VersionID     string               `json:"version_id"`
	VersionNumber int                  `json:"version_number"`
	PriorStatus   models.VersionStatus `json:"prior_status"`
	ArchivedBy    string               `json:"archived_by"`
}

func (v VersionArchived) GetType() EventType {
	return VersionArchivedEvent
}

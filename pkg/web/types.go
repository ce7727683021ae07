// Package web provides HTTP request and response types for the flow API.
package web

import "github.com/voicetree/voicetree/pkg/models"

// TenantHeader carries the tenant identifier on every request.
const TenantHeader = "X-Tenant-ID"

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	IsTemplate  bool   `json:"is_template"`
}

// UpdateFlowRequest represents the request body for updating an existing flow.
// All fields are optional to support partial updates.
type UpdateFlowRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
	IsTemplate  *bool   `json:"is_template,omitempty"`
}

// CreateDraftRequest represents the request body for opening a new draft
// version. SourceVersionID selects the version to clone; empty clones the
// live version when one exists.
type CreateDraftRequest struct {
	SourceVersionID string `json:"source_version_id,omitempty"`
}

// PromoteRequest represents the request body for promoting a version. Every
// promotion is attributed to an actor.
type PromoteRequest struct {
	Target     models.VersionStatus `json:"target"      validate:"required,oneof=staged live"`
	PromotedBy string               `json:"promoted_by" validate:"required"`
}

// ArchiveRequest represents the request body for archiving a version.
type ArchiveRequest struct {
	ArchivedBy string `json:"archived_by" validate:"required"`
}

// ListFlowsResponse is one page of flows plus pagination metadata.
type ListFlowsResponse struct {
	Flows []*models.Flow `json:"flows"`
	Total int            `json:"total_count"`
}

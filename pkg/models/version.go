package models

import "time"

// VersionStatus represents the lifecycle state of a flow version.
type VersionStatus string

const (
	VersionStatusDraft    VersionStatus = "draft"    // Editable, not executable
	VersionStatusStaged   VersionStatus = "staged"   // Frozen preview, not yet serving calls
	VersionStatusLive     VersionStatus = "live"     // Current executable version
	VersionStatusArchived VersionStatus = "archived" // Historical, terminal
)

// IsValid reports whether s is one of the known lifecycle states.
func (s VersionStatus) IsValid() bool {
	switch s {
	case VersionStatusDraft, VersionStatusStaged, VersionStatusLive, VersionStatusArchived:
		return true
	}

	return false
}

// CanPromoteTo reports whether the lifecycle permits a promotion from s to
// target. Staged is reachable only from draft; live from draft or staged.
func (s VersionStatus) CanPromoteTo(target VersionStatus) bool {
	switch target {
	case VersionStatusStaged:
		return s == VersionStatusDraft
	case VersionStatusLive:
		return s == VersionStatusDraft || s == VersionStatusStaged
	case VersionStatusDraft, VersionStatusArchived:
		return false
	}

	return false
}

// FlowVersion is one numbered snapshot of a flow's graph. Once a version
// leaves draft its graph is immutable; a live version only leaves that status
// by being superseded during a promotion.
type FlowVersion struct {
	ID         string        `json:"id"`
	FlowID     string        `json:"flow_id"   validate:"required"`
	TenantID   string        `json:"tenant_id" validate:"required"`
	Number     int           `json:"number"    validate:"required,min=1"`
	Status     VersionStatus `json:"status"    validate:"required"`
	Graph      *FlowGraph    `json:"graph"`
	PromotedBy string        `json:"promoted_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsMutable reports whether the version's graph may still be edited in place.
func (v *FlowVersion) IsMutable() bool {
	return v.Status == VersionStatusDraft
}

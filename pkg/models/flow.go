// Package models defines the core domain models for flow definition and versioning.
package models

import "time"

// Flow is a tenant-owned, named call-handling script. The script content
// itself lives in FlowVersion snapshots; the Flow row is the stable container
// that groups them.
type Flow struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"   validate:"required"`
	Name        string     `json:"name"        validate:"required,min=3"`
	Description string     `json:"description"`
	IsTemplate  bool       `json:"is_template"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

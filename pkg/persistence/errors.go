// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrVersionNotFound indicates a flow version was not found by the given identifier.
	ErrVersionNotFound = errors.New("flow version not found")

	// ErrDraftExists indicates a flow already has a draft version.
	ErrDraftExists = errors.New("flow already has a draft version")

	// ErrNotDraft indicates a mutation was attempted on a non-draft version.
	ErrNotDraft = errors.New("version is not a draft")

	// ErrInvalidTransition indicates a status change that the version lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid version status transition")

	// ErrVersionLive indicates an operation that cannot be applied to the live version.
	ErrVersionLive = errors.New("version is live")

	// ErrLiveConflict indicates the live version changed under a concurrent promotion.
	ErrLiveConflict = errors.New("live version changed concurrently")
)

// FlowError wraps flow-related errors with additional context.
type FlowError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Create", "Delete")
	TenantID string // Tenant the operation was scoped to
	FlowID   string // Flow ID if applicable
	Err      error  // Underlying error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s operation failed for flow %s (tenant %s): %v", e.Op, e.FlowID, e.TenantID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for flow errors.
func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, tenantID, flowID string, err error) *FlowError {
	return &FlowError{
		Op:       op,
		TenantID: tenantID,
		FlowID:   flowID,
		Err:      err,
	}
}

// VersionError wraps version-related errors with additional context.
type VersionError struct {
	Op        string // Operation being performed
	TenantID  string // Tenant the operation was scoped to
	VersionID string // Version ID if applicable
	Err       error  // Underlying error
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s operation failed for version %s (tenant %s): %v", e.Op, e.VersionID, e.TenantID, e.Err)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}

func (e *VersionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewVersionError creates a new version error with context.
func NewVersionError(op, tenantID, versionID string, err error) *VersionError {
	return &VersionError{
		Op:        op,
		TenantID:  tenantID,
		VersionID: versionID,
		Err:       err,
	}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsVersionNotFound checks if an error indicates a version was not found.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

// IsDraftExists checks if an error indicates a draft already exists for the flow.
func IsDraftExists(err error) bool {
	return errors.Is(err, ErrDraftExists)
}

// IsInvalidTransition checks if an error indicates a forbidden status transition.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsLiveConflict checks if an error indicates a lost concurrent promotion race.
func IsLiveConflict(err error) bool {
	return errors.Is(err, ErrLiveConflict)
}

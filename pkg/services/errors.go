// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/voicetree/voicetree/pkg/validation"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrFlowNameRequired   = errors.New("flow name is required")
	ErrTenantRequired     = errors.New("tenant is required")
	ErrInvalidTarget      = errors.New("invalid promotion target")
	ErrGraphRequired      = errors.New("flow graph is required")
	ErrInvalidSchemaVer   = errors.New("unsupported graph schema version")
	ErrPromotedByRequired = errors.New("promoted_by is required")
	ErrArchivedByRequired = errors.New("archived_by is required")

	// Not Found (404).
	ErrFlowNotFound    = errors.New("flow not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrNoLiveVersion   = errors.New("flow has no live version")

	// Invalid State (409 Conflict).
	ErrDraftExists       = errors.New("flow already has a draft version")
	ErrNotDraft          = errors.New("only draft versions can be edited")
	ErrInvalidTransition = errors.New("version status transition not allowed")
	ErrVersionLive       = errors.New("live versions cannot be archived directly")
	ErrPromotionConflict = errors.New("another promotion completed first")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GraphValidationError carries the full validation result so transports can
// render every finding, not just the first.
type GraphValidationError struct {
	Op     string
	Result validation.Result
}

func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("%s: graph validation failed with %d errors and %d warnings",
		e.Op, len(e.Result.Errors), len(e.Result.Warnings))
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFlowNameRequired) ||
		errors.Is(err, ErrTenantRequired) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrGraphRequired) ||
		errors.Is(err, ErrInvalidSchemaVer) ||
		errors.Is(err, ErrPromotedByRequired) ||
		errors.Is(err, ErrArchivedByRequired)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrFlowNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrNoLiveVersion)
}

// IsInvalidStateError checks if an error is a lifecycle violation that should return HTTP 409.
func IsInvalidStateError(err error) bool {
	return errors.Is(err, ErrDraftExists) ||
		errors.Is(err, ErrNotDraft) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrVersionLive)
}

// IsConflictError checks if an error is a lost promotion race that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrPromotionConflict)
}

// IsGraphValidationError checks if an error carries a failed validation result (HTTP 422).
func IsGraphValidationError(err error) bool {
	var gve *GraphValidationError

	return errors.As(err, &gve)
}

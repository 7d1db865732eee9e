package shared

import "strings"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
)

// ValidationError aggregates every violation found while validating a record.
// Validation never stops at the first problem: callers get the complete list
// so a rejected journal can be fixed in one pass.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Add appends a violation to the error
func (e *ValidationError) Add(violation string) {
	e.Violations = append(e.Violations, violation)
}

// HasViolations reports whether any violation was recorded
func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}

// NewValidationError creates a validation error from a list of violations
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound indicates a requested case, customer, or narrative does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExternalUnavailable indicates an external collaborator (retrieval,
	// generation) could not be reached or timed out.
	ErrExternalUnavailable = errors.New("external collaborator unavailable")

	// ErrEmptyNarrative indicates the generation collaborator returned no text.
	ErrEmptyNarrative = errors.New("empty narrative returned")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Validation failure reason codes. A validation failure is fatal by
// design: the pipeline fails closed rather than persisting an
// unverified narrative.
const (
	ReasonStructureInvalid      = "structure_invalid"
	ReasonHallucinationDetected = "hallucination_detected"
)

// ValidationError carries the reason code and the specific failing
// detail (offending amount, missing field) for a narrative that did not
// pass validation.
type ValidationError struct {
	Reason  string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("narrative validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("narrative validation failed: %s: %v", e.Reason, e.Details)
}

// NewValidationError creates a validation error with a reason code.
func NewValidationError(reason string, details []string) error {
	return &ValidationError{Reason: reason, Details: details}
}

// ChainIntegrityError is raised only by chain verification when a stored
// hash does not match its recomputation or a link is broken. It is never
// expected in normal operation and must be reported distinctly from
// business validation failures: it implies tampering or a defect, not a
// bad narrative.
type ChainIntegrityError struct {
	Reason string
	Index  int
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("audit chain integrity failure at record %d: %s", e.Index, e.Reason)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Package services defines the business logic for the assignment-request
// lifecycle, ratings, and profiles. This file centralizes the error taxonomy
// so service methods return stable values and handlers can translate them
// into HTTP results consistently.
//
// Four kinds exist: validation (bad input, fixable by the caller),
// authorization (actor lacks rights over the target), conflict (state
// precondition violated), and not-found. Specific sentinels unwrap to their
// kind, so callers can match either the precise condition or the category.
package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to 400, 401/403, 409, and 404.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("not found")
)

// Specific conditions. Guest gating happens at the HTTP layer, so there is no
// sign-in sentinel here.
var (
	// ErrWriterInactive rejects acceptance by a writer whose status is inactive.
	ErrWriterInactive = fmt.Errorf("writer is inactive: %w", ErrValidation)

	// ErrAlreadyAccepted is returned when an acceptance or deletion targets a
	// request that has already left the open state.
	ErrAlreadyAccepted = fmt.Errorf("request not open or already accepted: %w", ErrConflict)

	// ErrRequestNotFound indicates the referenced assignment request does not exist.
	ErrRequestNotFound = fmt.Errorf("assignment request not found: %w", ErrNotFound)

	// ErrClientGone indicates the owning client no longer exists at acceptance time.
	ErrClientGone = fmt.Errorf("owning client no longer exists: %w", ErrConflict)

	// ErrNotOwner rejects deletion of a request owned by someone else.
	ErrNotOwner = fmt.Errorf("not the owner of this request: %w", ErrAuthorization)

	// ErrSelfRating forbids rating oneself.
	ErrSelfRating = fmt.Errorf("cannot rate yourself: %w", ErrAuthorization)

	// ErrNotParticipant rejects a rating whose request has no assignment
	// involving both parties.
	ErrNotParticipant = fmt.Errorf("no assignment between these parties: %w", ErrAuthorization)

	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = fmt.Errorf("user not found: %w", ErrNotFound)

	// ErrNotWriter rejects acceptance attempts by non-writer accounts.
	ErrNotWriter = fmt.Errorf("only writers can accept requests: %w", ErrAuthorization)

	// ErrNotClient rejects request creation by non-client accounts.
	ErrNotClient = fmt.Errorf("only clients can post requests: %w", ErrAuthorization)

	// ErrOwnRequest forbids accepting a request one posted oneself.
	ErrOwnRequest = fmt.Errorf("cannot accept your own request: %w", ErrAuthorization)
)

// FieldError reports which input field failed validation. It unwraps to
// ErrValidation so category matching still works.
type FieldError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap classifies every FieldError as a validation failure.
func (e *FieldError) Unwrap() error { return ErrValidation }

// fieldErr is shorthand used by validation branches.
func fieldErr(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// Kind predicates for callers that only care about the category.

func IsValidation(err error) bool    { return errors.Is(err, ErrValidation) }
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }
func IsConflict(err error) bool      { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }

// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case and stable; clients branch on
// them for programmatic error handling while the message stays human-facing.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeSignInRequired   = "sign_in_required"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeWriterInactive = "writer_inactive"
	ErrCodeClientGone     = "client_gone"
)

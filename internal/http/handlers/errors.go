// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` and `failErr()` helpers in this package). These
// codes give clients a stable, machine-readable error taxonomy that
// supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (e.g., bad_request, unauthorized, not_found) mirror common
//     HTTP status semantics.
//   - Relation codes (already_exists, not_present) are returned with 400 and
//     tell clients which side of a toggle failed.
//   - validation_failed responses carry field-keyed messages in `errors`.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "message": "validation failed",
//	  "errors": {"cooking_time": ["cooking time must be at least 1 minute"]}
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"

	// Relation toggles:
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeNotPresent    = "not_present"
	ErrCodeSelfRelation  = "self_relation"
)

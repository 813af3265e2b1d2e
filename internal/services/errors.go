// Package services defines the business logic for recipes, ingredients,
// users and the favorite/cart/subscription relations. This file centralizes
// service-level error values so that handlers can map them to HTTP results
// consistently.
//
// Validation failures are reported as *ValidationError carrying field-keyed
// messages; relation toggles report *RelationError wrapping one of the
// relation sentinels below.
package services

import (
	"errors"
	"sort"
	"strings"
)

// Lookup errors.
var (
	// ErrRecipeNotFound indicates that the recipe does not exist or is not
	// owned by the caller for owner-only operations.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrIngredientNotFound indicates that the ingredient does not exist.
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrInvalidToken is returned when a bearer token is malformed, expired,
	// revoked or refers to a user that no longer exists.
	ErrInvalidToken = errors.New("invalid token")
)

// Relation toggle errors. They are wrapped by *RelationError, which carries
// the relation-specific message.
var (
	// ErrAlreadyPresent is returned when adding a relation row that exists.
	ErrAlreadyPresent = errors.New("relation already present")

	// ErrNotPresent is returned when removing a relation row that is absent.
	ErrNotPresent = errors.New("relation not present")

	// ErrSelfRelation is returned for relations that forbid owner == target.
	ErrSelfRelation = errors.New("relation to self")
)

// RelationError is a relation toggle failure with a human readable message.
type RelationError struct {
	Kind    error
	Message string
}

func (e *RelationError) Error() string { return e.Message }

func (e *RelationError) Unwrap() error { return e.Kind }

// FieldErrors maps a request field name to its validation messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Err returns nil when f is empty, otherwise a *ValidationError.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidationError reports invalid input, keyed by field.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// fieldError is shorthand for a single-field ValidationError.
func fieldError(field, msg string) error {
	return &ValidationError{Fields: FieldErrors{field: {msg}}}
}

/*
errors.go - Centralized error kinds for the back office

PURPOSE:
  All error kinds in one place. Every business-rule violation is returned
  as one of these (or a structured error unwrapping to one), so the HTTP
  layer can map it to a stable machine-readable code.

ERROR CATEGORIES:
  1. Request errors - missing or malformed input
  2. Rule errors - incentive rule validation on bulk replace
  3. Attendance errors - check-in/check-out state violations
  4. Access errors - unknown entities, authorization

USAGE:
  if errors.Is(err, office.ErrAlreadyCheckedIn) { ... }
  code := office.Kind(err) // "already_checked_in"

SEE ALSO:
  - api/handlers.go: Maps kinds to HTTP status codes
  - store/sqlite: Translates constraint failures into these kinds
*/
package office

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRequest is returned when required fields are missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoEligibleStaff is returned when none of the requested staff ids belong
	// to the Staff group.
	ErrNoEligibleStaff = errors.New("no eligible staff")

	// ErrValidation is returned when a bulk rule replacement contains a bad rule.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyCheckedIn is returned on a second check-in for the same day.
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// ErrNoCheckInFound is returned when checking out without a check-in.
	ErrNoCheckInFound = errors.New("no check-in found for today")

	// ErrAlreadyCheckedOut is returned on a second check-out for the same day.
	ErrAlreadyCheckedOut = errors.New("already checked out today")

	// ErrNotFound is returned when a referenced entity doesn't exist
	// (or isn't visible to the caller).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller's identity can't be established.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the required group.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a unique value (username, setting key) is taken.
	ErrConflict = errors.New("conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleValidationError describes the first rule rejected by a bulk replace.
type RuleValidationError struct {
	Index     int
	Condition string
	Reward    int64
	Reason    string
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("rule %d (%q -> %d): %s", e.Index, e.Condition, e.Reward, e.Reason)
}

func (e *RuleValidationError) Unwrap() error {
	return ErrValidation
}

// FieldError names the request field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidRequest
}

func missing(field string) error {
	return &FieldError{Field: field, Reason: "is required"}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidRequest, "invalid_request"},
	{ErrNoEligibleStaff, "no_eligible_staff"},
	{ErrValidation, "validation_error"},
	{ErrAlreadyCheckedIn, "already_checked_in"},
	{ErrNoCheckInFound, "no_check_in_found"},
	{ErrAlreadyCheckedOut, "already_checked_out"},
	{ErrNotFound, "not_found"},
	{ErrUnauthorized, "unauthorized"},
	{ErrForbidden, "forbidden"},
	{ErrConflict, "conflict"},
}

// Kind returns the stable machine-readable kind of err, or "internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// IsClientError returns true if the error is due to the caller's input or state.
func IsClientError(err error) bool {
	switch Kind(err) {
	case "", "internal", "not_found", "unauthorized", "forbidden":
		return false
	}
	return true
}

package quotations

import "errors"

// Lifecycle error kinds. Operations return one of these wrapped with
// context, never a generic failure.
var (
	// ErrValidation indicates a missing or invalid required input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates the action is not defined for the
	// quotation's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthorizedTransition indicates the acting role lacks the
	// capability for a transition that exists for the current status.
	ErrUnauthorizedTransition = errors.New("transition not permitted for role")
	// ErrQuotationExpired indicates the validity window has passed.
	ErrQuotationExpired = errors.New("quotation expired")
	// ErrConcurrentModification indicates a transition write lost the race
	// against another writer; callers re-read and retry.
	ErrConcurrentModification = errors.New("quotation modified concurrently")
	// ErrDependencyFailure indicates an external collaborator failed. The
	// quotation state is left untouched.
	ErrDependencyFailure = errors.New("dependency failure")
	// ErrNotFound indicates no quotation with the given identifier.
	ErrNotFound = errors.New("quotation not found")
)

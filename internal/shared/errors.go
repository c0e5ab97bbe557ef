package shared

import "errors"

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation on create.
	ErrDuplicate = errors.New("duplicate key")
	// ErrUnauthenticated indicates no valid principal was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccountDisabled indicates the principal resolved but is inactive.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates a malformed or invalid request payload.
	ErrValidation = errors.New("validation failed")
)

// Machine-readable denial reasons reported alongside typed errors.
const (
	ReasonMissingPermission  = "missing_permission"
	ReasonConfidentialAccess = "confidential_access"
	ReasonNotOwner           = "not_owner"
	ReasonAdminOnly          = "admin_only"
	ReasonSelfDelete         = "self_delete"
	ReasonDoubleBooking      = "double_booking"
)

// ForbiddenError reports an authorization denial with its reason code.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// Forbidden constructs a ForbiddenError.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// ConflictError reports a state conflict such as a scheduling overlap.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// Conflict constructs a ConflictError.
func Conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// InvalidOperationError reports an operation rejected by a business rule.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return "invalid operation: " + e.Reason
}

// InvalidOperation constructs an InvalidOperationError.
func InvalidOperation(reason string) error {
	return &InvalidOperationError{Reason: reason}
}

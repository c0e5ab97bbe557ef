package httpx

import (
	"errors"
	"net/http"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Every
// denial retains its reason code; nothing is downgraded to a generic failure.
func RespondError(w http.ResponseWriter, err error) {
	var forbidden *shared.ForbiddenError
	var conflict *shared.ConflictError
	var invalidOp *shared.InvalidOperationError
	switch {
	case errors.As(err, &forbidden):
		ProblemWithReason(w, http.StatusForbidden, "Forbidden", forbidden.Reason)
	case errors.As(err, &conflict):
		ProblemWithReason(w, http.StatusConflict, "Conflict", conflict.Reason)
	case errors.As(err, &invalidOp):
		ProblemWithReason(w, http.StatusBadRequest, "Invalid Operation", invalidOp.Reason)
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", "no valid principal presented")
	case errors.Is(err, shared.ErrAccountDisabled):
		ProblemWithReason(w, http.StatusForbidden, "Account Disabled", "account_disabled")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", "")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/karma-pos/karma/internal/shared"
)

// RespondError maps tagged domain errors to HTTP responses using RFC7807.
// Untagged errors are treated as storage failures and never leak internals.
func RespondError(w http.ResponseWriter, err error) {
	switch shared.KindOf(err) {
	case shared.KindValidation:
		Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case shared.KindConflict:
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case shared.KindUnauthorized:
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	case shared.KindInsufficientStock:
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

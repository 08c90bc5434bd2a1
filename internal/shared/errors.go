package shared

import (
	"errors"
	"fmt"
)

// ErrorKind tags a domain error so handlers can map it to a transport
// status without string matching.
type ErrorKind string

const (
	// KindValidation indicates malformed or missing input.
	KindValidation ErrorKind = "validation"
	// KindNotFound indicates a referenced resource is absent.
	KindNotFound ErrorKind = "not_found"
	// KindConflict indicates a uniqueness or state conflict.
	KindConflict ErrorKind = "conflict"
	// KindUnauthorized indicates missing or invalid credentials.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindInsufficientStock indicates a stock mutation would go negative.
	KindInsufficientStock ErrorKind = "insufficient_stock"
	// KindStorage indicates the backing store failed or returned bad data.
	KindStorage ErrorKind = "storage"
)

// Error carries a kind plus a human-readable message. The message is safe
// to render to API clients.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NewError builds a tagged error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError tags an underlying error while keeping it unwrappable.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind of err, defaulting to KindStorage for untagged
// errors coming back from the store.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind == kind
	}
	return false
}

// UserSafeMessage returns a message suitable for API clients.
func UserSafeMessage(err error) string {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Message
	}
	return "Error interno del servidor"
}

package shared

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the response layer.
type Kind int

const (
	// KindInternal is an unexpected failure; details never reach the caller.
	KindInternal Kind = iota
	// KindValidation is malformed client input.
	KindValidation
	// KindNotFound covers both absent and hidden entities.
	KindNotFound
	// KindForbidden is a visible entity with a disallowed verb.
	KindForbidden
	// KindConflict is a state-machine precondition violation or a uniqueness clash.
	KindConflict
	// KindUnauthenticated means no usable credentials were presented.
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error carries a Kind plus a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a validation error with per-field messages.
func Validation(message string, fields map[string]string) *Error {
	if message == "" {
		message = "The given data was invalid."
	}
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// FieldError builds a validation error for a single field.
func FieldError(field, message string) *Error {
	return Validation("", map[string]string{field: message})
}

// NotFound builds a not-found error for the named entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", Err: ErrNotFound}
}

// Forbidden builds a forbidden error with a human readable reason.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Conflict builds a conflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Unauthenticated builds an unauthenticated error.
func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Unauthenticated."
	}
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the Kind of err, treating plain ErrNotFound as KindNotFound
// and anything unclassified as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserSafeMessage returns a message that can be shown to API clients.
func UserSafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	if errors.Is(err, ErrNotFound) {
		return "Resource not found"
	}
	return "Something went wrong"
}

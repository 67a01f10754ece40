package apperr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories the core reports. Handlers map
// these to transport codes; use cases never invent ad-hoc kinds.
type Kind string

const (
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindInsufficientAvailable  Kind = "INSUFFICIENT_AVAILABLE"
	KindInsufficientStock      Kind = "INSUFFICIENT_STOCK"
	KindNotFound               Kind = "NOT_FOUND"
	KindConflict               Kind = "CONFLICT"
	KindPendingItemsRemain     Kind = "PENDING_ITEMS_REMAIN"
	KindValidation             Kind = "VALIDATION"
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the kind of err, or "" when err is not an apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func NotFound(entity, id string) *Error {
	return New(KindNotFound, "%s %s not found", entity, id)
}

func InvalidTransition(entity, from, to string) *Error {
	return New(KindInvalidStateTransition, "%s cannot move from %s to %s", entity, from, to)
}

package domain

import (
	"errors"

	goerrors "github.com/go-errors/errors"
)

type ErrorKind string

const (
	KindBadRequest ErrorKind = "bad_request"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

// Error is the classified error returned across the engine boundary.
// Message is safe to show to API callers; Err never is.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindInternal {
		return "internal error"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewBadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

func NewNotFound(msg string, err error) error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func NewConflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// NewInternal wraps err with the caller's stack.
func NewInternal(err error) error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: goerrors.Wrap(err, 1)}
}

// KindOf classifies err; anything unclassified is internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrorStack returns the captured stack trace of an internal error, or the
// plain error text when none was recorded.
func ErrorStack(err error) string {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.ErrorStack()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

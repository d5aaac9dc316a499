// Package apperr defines the error taxonomy shared by every component.
// Each error carries a stable Kind and a human-readable message; the HTTP
// layer maps kinds to status codes and never exposes wrapped causes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindAuthorization   Kind = "authorization"
	KindConflict        Kind = "conflict"
	KindExternal        Kind = "external_service"
	KindSignature       Kind = "signature"
	KindInternal        Kind = "internal"
)

// Error is a classified application error. Detail narrows Message down to
// the offending entity and does not take part in Is.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.public(), e.Err)
	}
	return e.public()
}

func (e *Error) public() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same kind and message, so
// package-level sentinels keep working after a cause has been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// Withf returns a copy of e with a formatted detail.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Detail = fmt.Sprintf(format, args...)
	return &c
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Authorization(format string, args ...any) *Error {
	return New(KindAuthorization, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func External(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Message: fmt.Sprintf(format, args...), Err: cause}
}

func Signature(cause error) *Error {
	return &Error{Kind: KindSignature, Message: "webhook signature verification failed", Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the message safe to show to callers.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.public()
	}
	return "internal server error"
}

// Package apperr implements the error-kind taxonomy that every layer of
// this repo classifies errors into: Validation, Auth, NotFound,
// Transient, Permanent, and Internal. It replaces the exception-class
// hierarchy of the system this was modeled on with sentinel-wrapped
// errors usable through errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one taxonomy bucket. The worker and the HTTP surface both
// switch on Kind to decide retry behavior and status codes.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindNotFound
	KindTransient
	KindPermanent
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified application error. Message is safe to surface to
// an interactive caller; it must never contain tokens, provider URLs, or
// traceback content — those belong only in the DLQ record.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation wraps err as a ValidationError: bad UUID, message over
// limit, empty title, oversized image, unsupported mime. Treated as
// permanent inside the worker; surfaced as 4xx to callers.
func Validation(format string, args ...any) *Error { return newf(KindValidation, nil, format, args...) }

// WrapValidation is Validation but keeps the underlying cause for Unwrap.
func WrapValidation(err error, format string, args ...any) *Error {
	return newf(KindValidation, err, format, args...)
}

// Auth wraps an AuthError: no session, refresh failed, permission
// denied. 401 to callers; permanent for the worker; sync reports
// permission_denied.
func Auth(format string, args ...any) *Error { return newf(KindAuth, nil, format, args...) }

func WrapAuth(err error, format string, args ...any) *Error {
	return newf(KindAuth, err, format, args...)
}

// NotFound wraps a NotFound error: folder, file, chunk, or conversation.
// 404 to callers; permanent in the worker.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, nil, format, args...) }

func WrapNotFound(err error, format string, args ...any) *Error {
	return newf(KindNotFound, err, format, args...)
}

// Transient wraps a TransientError: network errors, timeouts, 5xx,
// rate-limit signals. Auto-retried with backoff in the worker; 503 to
// interactive callers only if every retry layer fails.
func Transient(format string, args ...any) *Error { return newf(KindTransient, nil, format, args...) }

func WrapTransient(err error, format string, args ...any) *Error {
	return newf(KindTransient, err, format, args...)
}

// Permanent wraps a PermanentError: unsupported format, corrupt input,
// file truly missing. No retry; DLQ entry; file moves to Skipped so the
// folder can still reach Ready.
func Permanent(format string, args ...any) *Error { return newf(KindPermanent, nil, format, args...) }

func WrapPermanent(err error, format string, args ...any) *Error {
	return newf(KindPermanent, err, format, args...)
}

// Internal wraps an uncaught error. Treated as Transient for retry
// purposes; logged; captured to the DLQ only if it recurs past
// max_attempts.
func Internal(format string, args ...any) *Error { return newf(KindInternal, nil, format, args...) }

func WrapInternal(err error, format string, args ...any) *Error {
	return newf(KindInternal, err, format, args...)
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether err should be retried by the worker:
// Transient and Internal errors are retryable; everything else,
// including errors apperr doesn't recognize, is not — callers that want
// "retry unknown errors by default" should classify with Classify first.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindTransient || kind == KindInternal
}

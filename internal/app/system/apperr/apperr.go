// Package apperr defines the error kinds returned across the service
// boundary and how each maps to an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindExpired
	KindUnauthorized
	KindBadRequest
	KindEmailDeliveryFailed
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindEmailDeliveryFailed:
		return "email_delivery_failed"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindEmailDeliveryFailed:
		return http.StatusBadGateway
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// InternalMessage is the only message callers see for internal failures.
const InternalMessage = "Internal server error"

// Error is a classified error. Message is safe to show to the caller;
// Err holds the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func Expired(msg string) *Error      { return &Error{Kind: KindExpired, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func BadRequest(msg string) *Error   { return &Error{Kind: KindBadRequest, Message: msg} }

func TooManyRequests(msg string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: msg}
}

// EmailDeliveryFailed reports an outbound notification that did not go out.
func EmailDeliveryFailed(msg string, cause error) *Error {
	return &Error{Kind: KindEmailDeliveryFailed, Message: msg, Err: cause}
}

// Internal wraps an unexpected failure. The cause is never shown to callers.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: cause}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message that may be shown for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return InternalMessage
}

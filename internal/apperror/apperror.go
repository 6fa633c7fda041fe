package apperror

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories every user-facing error falls into.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not-found"
	KindValidation   Kind = "validation"
	KindServer       Kind = "server"
	KindTimeout      Kind = "timeout"
	KindUnknown      Kind = "unknown"
)

var (
	// ErrNetwork marks a request that never reached or never returned from the server.
	ErrNetwork = errors.New("network error")
	// ErrTimeout marks a request that ran out of its time budget.
	ErrTimeout = errors.New("request timeout")
)

var defaultMessages = map[Kind]string{
	KindNetwork:      "Unable to connect to the server. Please check your internet connection.",
	KindUnauthorized: "Your session has expired. Please log in again.",
	KindForbidden:    "You do not have permission to perform this action.",
	KindNotFound:     "The requested resource was not found.",
	KindValidation:   "Please check your input and try again.",
	KindServer:       "Something went wrong on our end. Please try again later.",
	KindUnknown:      "An unexpected error occurred. Please try again.",
	KindTimeout:      "The request took too long. Please try again.",
}

var titles = map[Kind]string{
	KindNetwork:      "Connection Error",
	KindUnauthorized: "Session Expired",
	KindForbidden:    "Access Denied",
	KindNotFound:     "Not Found",
	KindServer:       "Server Error",
	KindTimeout:      "Request Timeout",
}

// DefaultMessage returns the fixed user-facing message for k.
func (k Kind) DefaultMessage() string {
	if msg, ok := defaultMessages[k]; ok {
		return msg
	}
	return defaultMessages[KindUnknown]
}

// Title is the heading shown above an error of kind k.
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return "Something Went Wrong"
}

// Retryable reports whether re-issuing the same call is a sensible next step.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// Unauthorized reports whether the caller must force re-authentication.
func (k Kind) Unauthorized() bool {
	return k == KindUnauthorized
}

// Error is a classified failure ready to be shown to a shopper.
type Error struct {
	Kind        Kind
	Message     string
	HTTPStatus  int
	FieldErrors map[string][]string
	// Cause is the originating value, kept for logging only.
	Cause any
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause when it is an error.
func (e *Error) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// Retryable is shorthand for e.Kind.Retryable.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// Unauthorized is shorthand for e.Kind.Unauthorized.
func (e *Error) Unauthorized() bool { return e.Kind.Unauthorized() }

// Validation builds a validation error carrying per-field messages.
func Validation(fieldErrors map[string][]string) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     KindValidation.DefaultMessage(),
		HTTPStatus:  422,
		FieldErrors: fieldErrors,
	}
}

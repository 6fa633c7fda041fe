package apperror

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

type statusCoder interface {
	StatusCode() int
}

type apiMessager interface {
	APIMessage() string
}

type fieldErrorer interface {
	FieldErrors() map[string][]string
}

var networkMessages = []string{
	"failed to fetch",
	"network request failed",
	"network error",
	"load failed",
	"connection refused",
	"connection reset",
	"no such host",
}

// Classify maps any failure into a *Error. The decision order is fixed:
// network, timeout, HTTP status, plain error, anything else.
// An origin that already is a *Error is returned as is.
func Classify(origin any) *Error {
	if origin == nil {
		return newError(KindUnknown, "", 0, origin)
	}
	err, isErr := origin.(error)
	if isErr {
		var classified *Error
		if errors.As(err, &classified) {
			return classified
		}
		var sc statusCoder
		hasStatus := errors.As(err, &sc)
		// A response with a status reached the server, so message
		// heuristics are only applied to status-less errors.
		if isNetwork(err, !hasStatus) {
			return newError(KindNetwork, "", 0, origin)
		}
		if isTimeout(err, !hasStatus) {
			return newError(KindTimeout, "", 0, origin)
		}
		if hasStatus {
			return fromStatus(sc, origin)
		}
		return newError(KindUnknown, err.Error(), 0, origin)
	}
	if sc, ok := origin.(statusCoder); ok {
		return fromStatus(sc, origin)
	}
	return newError(KindUnknown, "", 0, origin)
}

func fromStatus(sc statusCoder, origin any) *Error {
	status := sc.StatusCode()
	kind := kindForStatus(status)

	var msg string
	if m, ok := sc.(apiMessager); ok {
		msg = m.APIMessage()
	}
	out := newError(kind, msg, status, origin)
	if kind == KindValidation {
		if fe, ok := sc.(fieldErrorer); ok {
			out.FieldErrors = fe.FieldErrors()
		}
	}
	return out
}

func kindForStatus(status int) Kind {
	switch status {
	case 401:
		return KindUnauthorized
	case 403:
		return KindForbidden
	case 404:
		return KindNotFound
	case 422:
		return KindValidation
	case 500, 502, 503, 504:
		return KindServer
	default:
		return KindUnknown
	}
}

func newError(kind Kind, msg string, status int, origin any) *Error {
	if strings.TrimSpace(msg) == "" {
		msg = kind.DefaultMessage()
	}
	return &Error{Kind: kind, Message: msg, HTTPStatus: status, Cause: origin}
}

// isNetwork excludes timeouts so that a dial that ran out of time is
// reported as a timeout rather than a connection problem.
func isNetwork(err error, byMessage bool) bool {
	if isTimeout(err, byMessage) {
		return false
	}
	if errors.Is(err, ErrNetwork) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if !byMessage {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range networkMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isTimeout(err error, byMessage bool) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrTimeout) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return byMessage && strings.Contains(strings.ToLower(err.Error()), "timeout")
}

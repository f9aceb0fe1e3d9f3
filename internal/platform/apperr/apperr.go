// Package apperr defines the error taxonomy shared by all services: every
// caller-visible failure is classified into a Kind so handlers can map it to
// a distinct HTTP outcome without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindInternal is the default for anything not explicitly classified.
	KindInternal Kind = iota
	// KindValidation covers malformed or missing input, including bad
	// identifier formats.
	KindValidation
	// KindNotFound covers requests for resources that do not exist.
	KindNotFound
	// KindUnauthorized covers failed or missing authentication.
	KindUnauthorized
	// KindForbidden covers tenant-scope and role violations.
	KindForbidden
	// KindConflict covers duplicate identities and activation races.
	KindConflict
	// KindIntegrity covers cipher authentication failures. Never recovered
	// silently.
	KindIntegrity
	// KindConfiguration covers fatal startup misconfiguration.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// Error is a classified application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a plain message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code of its caller-visible outcome.
// Internal (and integrity/configuration, which should not normally reach a
// handler) map to 500 so no details leak.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-visible message for err. Unclassified errors get
// a generic message so internals never leak to the caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindInternal, KindIntegrity, KindConfiguration:
			return "internal server error"
		default:
			return e.Msg
		}
	}
	return "internal server error"
}

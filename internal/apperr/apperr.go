// Package apperr implements the abstract error taxonomy every component
// in telewatch propagates through: auth/role failures, store conflicts,
// upstream (Bot API) transience, and the like. Handlers map a Kind to an
// HTTP status; the forwarding engine and supervisor branch on Kind to
// decide whether to retry.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	Validation
	Deprecated
	UpstreamTransient
	UpstreamPermanent
	StoreUnavailable
	ArtifactInvalid
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation"
	case Deprecated:
		return "deprecated"
	case UpstreamTransient:
		return "upstream_transient"
	case UpstreamPermanent:
		return "upstream_permanent"
	case StoreUnavailable:
		return "store_unavailable"
	case ArtifactInvalid:
		return "artifact_invalid"
	case RateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps a Kind to the HTTP status code the control surface
// returns for it.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Validation, ArtifactInvalid:
		return http.StatusBadRequest
	case Deprecated:
		return http.StatusGone
	case RateLimited:
		return http.StatusTooManyRequests
	case UpstreamTransient, UpstreamPermanent, StoreUnavailable, Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// taxonomy without string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to Internal for any error
// that wasn't constructed through this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

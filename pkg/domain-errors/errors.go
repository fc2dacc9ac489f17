// Package pkgerrors defines coded domain errors shared across services.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// these coded errors at the service boundary; transport maps codes to HTTP
// statuses. Codes are stable strings so they can cross process boundaries in
// JSON error bodies.
package pkgerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeConsentMissing marks an operation blocked because the guard has not
	// granted consent for the required purpose. Expected state, not a fault:
	// callers branch into the consent-request flow.
	CodeConsentMissing Code = "consent_missing"

	// CodeConsentRevoked marks a previously granted consent that has been
	// withdrawn (or has expired). An active tracking session must stop.
	CodeConsentRevoked Code = "consent_revoked"

	// CodePermissionDenied marks a device-level location permission failure,
	// distinct from consent: the guard may have consented while the device
	// refuses to share positions.
	CodePermissionDenied Code = "device_permission_denied"

	// CodePositionFetchFailed marks a transient position acquisition failure.
	CodePositionFetchFailed Code = "position_fetch_failed"

	// CodePersistenceFailed marks a state-store write failure. In-memory state
	// must not advance past a failed write.
	CodePersistenceFailed Code = "persistence_failed"

	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"
)

// Error is a coded domain error. The message is safe for API responses.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded domain error that preserves the underlying cause for
// errors.Is/errors.As chains and log output.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so transport never leaks raw error text.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its transport status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeConsentMissing, CodeConsentRevoked, CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable, CodePersistenceFailed, CodePositionFetchFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

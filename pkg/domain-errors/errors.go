// Package domainerrors defines the typed error taxonomy returned by domain
// services. Every failure a caller can observe carries a stable code; the HTTP
// layer maps codes to status codes without inspecting messages.
//
// Stores and infrastructure return sentinels from pkg/platform/sentinel;
// services translate those into domain errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are part of the API contract.
type Code string

const (
	// CodeValidation covers malformed or missing input: the caller's fault.
	CodeValidation Code = "validation_error"

	// CodeInvalidAction is returned when a review action is neither approve
	// nor reject.
	CodeInvalidAction Code = "invalid_action"

	// CodeSelfApproval is returned when a requester tries to review their
	// own case.
	CodeSelfApproval Code = "self_approval"

	// CodeUnauthorizedApprover covers both "never on the route" and
	// "already voted".
	CodeUnauthorizedApprover Code = "unauthorized_approver"

	// CodeTerminalState is returned when a case is already approved or
	// rejected and accepts no further decisions.
	CodeTerminalState Code = "terminal_state"

	// CodeNotFound means the referenced entity does not exist.
	CodeNotFound Code = "not_found"

	// CodeConcurrency means the optimistic-write retry budget was exhausted.
	CodeConcurrency Code = "concurrency_conflict"

	// CodeStoreTimeout means the persistence adapter timed out.
	CodeStoreTimeout Code = "store_timeout"

	// CodeStore covers other persistence adapter failures, propagated
	// unchanged.
	CodeStore Code = "store_error"

	// CodeInternal is the fallback for unexpected failures. Its description
	// is never exposed to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. It wraps an optional cause for logs while the
// code and message are what callers see.
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

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is match on code equality so callers can compare against
// New(code, "") style targets.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New constructs a domain error with a stable code and caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a domain error. The cause shows up in logs via
// Error()/Unwrap but is not part of the caller-facing message.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a domain error to the status code the transport layer
// should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeInvalidAction:
		return http.StatusBadRequest
	case CodeSelfApproval, CodeUnauthorizedApprover:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTerminalState, CodeConcurrency:
		return http.StatusConflict
	case CodeStoreTimeout:
		return http.StatusGatewayTimeout
	case CodeStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

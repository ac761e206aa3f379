// Package domainerrors provides coded errors for the screening service.
// Services attach a Code when translating infrastructure failures or
// rejecting input; the HTTP layer maps codes to status lines without
// inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and logging.
type Code string

const (
	// CodeValidation marks caller input that failed validation, such as
	// a search term below the minimum length.
	CodeValidation Code = "validation_error"

	// CodeBadRequest marks a structurally invalid request.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"

	// CodeNoData marks a cold-start total failure: no dataset snapshot
	// has ever been obtained, so there is nothing to serve.
	CodeNoData Code = "no_data"

	// CodeFetchFailed marks an upstream dataset fetch failure
	// (transport error, non-success status, timeout).
	CodeFetchFailed Code = "fetch_failed"

	// CodeParseFailed marks a malformed upstream dataset (bad header
	// schema or excessive skipped rows).
	CodeParseFailed Code = "parse_failed"

	// CodeTimeout marks an operation that exceeded its deadline.
	CodeTimeout Code = "timeout"

	// CodeRateLimited marks a request rejected by the rate limiter.
	CodeRateLimited Code = "rate_limited"

	// CodeInternal marks an unexpected failure callers cannot act on.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error. The cause
// remains reachable through errors.Is/errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or any error in its chain carries code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// Is is a readability alias for HasCode at call sites that test a
// single code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code carried by err, or CodeInternal when err is
// not a domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

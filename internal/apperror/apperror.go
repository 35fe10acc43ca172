package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindExpired            Kind = "expired"
	KindPermissionDenied   Kind = "permission_denied"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindStorage            Kind = "storage_error"
)

// Error is a business failure with a stable code and a human message
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return newError(KindValidation, code, message)
}

func NotFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

func Expired(code, message string) *Error {
	return newError(KindExpired, code, message)
}

func PermissionDenied(code, message string) *Error {
	return newError(KindPermissionDenied, code, message)
}

func QuotaExceeded(code, message string) *Error {
	return newError(KindQuotaExceeded, code, message)
}

func InvalidCredentials() *Error {
	return newError(KindInvalidCredentials, "invalid_credentials", "invalid credentials")
}

// Unauthorized rejects a missing, expired or revoked session credential
func Unauthorized(code, message string) *Error {
	return newError(KindInvalidCredentials, code, message)
}

// Storage wraps a persistence failure. The cause is kept for logging only.
func Storage(op string, err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Code:    "storage_error",
		Message: "internal server error",
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From converts any error to *Error, treating unknown errors as storage failures
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Storage("unexpected", err)
}

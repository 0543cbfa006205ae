package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrInvalidToken = "INVALID_TOKEN"

	// Store errors
	ErrUnknownAction      = "UNKNOWN_ACTION"
	ErrDispatchInProgress = "DISPATCH_IN_PROGRESS"

	// Settings service errors
	ErrInvalidSettingsTarget = "INVALID_SETTINGS_TARGET"
	ErrUpstream              = "UPSTREAM_ERROR"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"

	ErrDatabase = "database_error"
	ErrInternal = "INTERNAL_ERROR"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: "Not found: " + what,
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewInvalidSettingsTargetError(kind string) *AppError {
	return &AppError{
		Code:    ErrInvalidSettingsTarget,
		Message: fmt.Sprintf("Unsupported settings target type: %q", kind),
	}
}

func NewActorTimeoutError(actorName string, origin error) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
		Origin:  origin,
	}
}

// IsErrorCode reports whether err, or anything it wraps, is an AppError with
// the given code.
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsAuthError reports whether err is related to authentication.
func IsAuthError(err error) bool {
	return IsErrorCode(err, ErrUnauthorized) || IsErrorCode(err, ErrInvalidToken)
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput, ErrUnknownAction, ErrInvalidSettingsTarget:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return http.StatusUnauthorized
	case ErrDispatchInProgress:
		return http.StatusConflict
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrActorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatusFor maps any error to an HTTP status.
func HTTPStatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return AppErrorToHTTPStatus(appErr.Code)
	}
	return http.StatusInternalServerError
}

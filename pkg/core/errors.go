package core

import (
	"errors"
	"fmt"
)

// Error represents a transport or platform error.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConnection covers auth failures and unexpected connection drops.
	ErrConnection ErrorType = "connection_error"
	// ErrProtocol covers malformed or unexpected wire payloads.
	ErrProtocol ErrorType = "protocol_error"
	// ErrCapability covers unavailable devices and denied permissions.
	ErrCapability ErrorType = "capability_error"
	// ErrPlayback covers audio decode and playback failures.
	ErrPlayback ErrorType = "playback_error"
	// ErrPagination covers missing or expired correlation handles.
	ErrPagination ErrorType = "pagination_error"
	// ErrApplication covers server-reported business failures carried
	// inside otherwise successful frames.
	ErrApplication ErrorType = "application_error"
	// ErrInvalidRequest covers caller mistakes caught before any I/O.
	ErrInvalidRequest ErrorType = "invalid_request_error"
)

// NewConnectionError creates a connection error.
func NewConnectionError(message string) *Error {
	return &Error{
		Type:    ErrConnection,
		Message: message,
	}
}

// NewProtocolError creates a protocol error wrapping the decode failure.
func NewProtocolError(message string, cause error) *Error {
	return &Error{
		Type:    ErrProtocol,
		Message: message,
		Cause:   cause,
	}
}

// NewCapabilityError creates a capability error wrapping the device failure.
func NewCapabilityError(message string, cause error) *Error {
	return &Error{
		Type:    ErrCapability,
		Message: message,
		Cause:   cause,
	}
}

// NewPlaybackError creates a playback error.
func NewPlaybackError(message string, cause error) *Error {
	return &Error{
		Type:    ErrPlayback,
		Message: message,
		Cause:   cause,
	}
}

// NewPaginationError creates a pagination error.
func NewPaginationError(message string) *Error {
	return &Error{
		Type:    ErrPagination,
		Message: message,
	}
}

// NewApplicationError creates an application error with a server code.
func NewApplicationError(message, code string) *Error {
	return &Error{
		Type:    ErrApplication,
		Message: message,
		Code:    code,
	}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	return e.Type == ErrConnection
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

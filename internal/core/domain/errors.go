package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error is an error that carries the HTTP status it maps to.
type Error struct {
	Status  Status
	Message string
	Cause   error
}

// NewError creates an Error with the given status and message.
func NewError(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(status Status, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same status and message, so sentinels
// keep matching after WithCause or WithDetail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Status: e.Status, Message: e.Message, Cause: cause}
}

// WithDetail returns a copy of the error with detail appended to its cause
// chain. The message stays the same so errors.Is keeps matching.
func (e *Error) WithDetail(format string, args ...any) *Error {
	return e.WithCause(fmt.Errorf(format, args...))
}

// Sentinel errors shared by the gateway and handlers.
var (
	ErrBadRequest       = NewError(StatusBadRequest, "bad request")
	ErrBodyTooLarge     = NewError(StatusBadRequest, "request body too large")
	ErrHeaderTooLarge   = NewError(StatusBadRequest, "request header too large")
	ErrMalformedRequest = NewError(StatusBadRequest, "malformed request")
	ErrTruncated        = NewError(StatusBadRequest, "truncated request")
	ErrInvalidBody      = NewError(StatusBadRequest, "invalid request body")
	ErrNotImplemented   = NewError(StatusNotImplemented, "method not implemented")

	ErrAuthFailed = NewError(StatusForbidden, "authorization failed")

	ErrNotFound         = NewError(StatusNotFound, "not found")
	ErrMethodNotAllowed = NewError(StatusMethodNotAllowed, "method not allowed")

	ErrIdempotencyKeyMissing = NewError(StatusBadRequest, "X-Idempotency-Key header required")
	ErrIdempotencyConflict   = NewError(StatusUnprocessableEntity, "idempotency key reused with a different body")

	ErrDeviceNotFound    = NewError(StatusNotFound, "device not registered")
	ErrDeviceBusy        = NewError(StatusConflict, "device busy")
	ErrDeviceTimeout     = NewError(StatusGatewayTimeout, "device timeout")
	ErrUnknownOperation  = NewError(StatusNotFound, "unknown device operation")
	ErrOperationRejected = NewError(StatusUnprocessableEntity, "operation rejected by device")

	ErrInternal = NewError(StatusInternalServerError, "internal server error")
)

// StatusOf maps an error to the status it should produce. Errors that do not
// carry a status map to StatusInternalServerError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusGatewayTimeout
	}
	return StatusInternalServerError
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// TransportError is a failed network operation on a request's connection.
type TransportError struct {
	ID  uint16 // correlation id
	Op  string // "handshake", "read", "write", "shutdown"
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("request %d: %s: %v", e.ID, e.Op, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

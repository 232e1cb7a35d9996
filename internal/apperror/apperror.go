// Package apperror defines the error taxonomy shared by the service and handler layers.
//
// Every flow in this server resolves to a piece of text shown in the page. An AppError
// therefore carries two things: a sentinel (what KIND of failure it was, checked with
// errors.Is) and the Message that the user sees in place of a normal result.
// Low-level details (HTTP status codes, decode errors, upstream payloads) are logged
// where they happen and never end up in Message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")
	ErrRemote        = errors.New("remote reported error")
	ErrConflict      = errors.New("conflict")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable, safe to show in the UI
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NotConfigured reports a missing endpoint or key. Detected before any network call.
func NotConfigured(setting, message string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: message,
		Field:   setting,
	}
}

// Upstream covers transport failures: network errors, non-2xx statuses, undecodable
// bodies and an open circuit breaker.
func Upstream(message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
}

// Remote is used when the upstream answered but its payload carries an explicit error object.
func Remote(message string) *AppError {
	return &AppError{
		Err:     ErrRemote,
		Message: message,
	}
}

func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s: %s", resource, message),
		Field:   resource,
	}
}

// Message returns the user-facing text carried by err, or fallback when err is not an AppError.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

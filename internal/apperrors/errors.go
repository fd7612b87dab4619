// Package apperrors defines the error taxonomy shared by the bot's
// components. Callers classify failures with errors.Is / errors.As and
// never need to inspect error strings.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for each failure class.
var (
	// ErrTransport marks network, DNS and timeout failures.
	ErrTransport = errors.New("transport error")

	// ErrServer marks a non-2xx response from an HTTP dependency.
	ErrServer = errors.New("server error")

	// ErrParse marks unexpected HTML or size-format shapes.
	ErrParse = errors.New("parse error")

	// ErrValidation marks bad command arguments.
	ErrValidation = errors.New("validation error")

	// ErrMissingArgument marks a command invoked without a required argument.
	ErrMissingArgument = fmt.Errorf("missing required argument: %w", ErrValidation)

	// ErrInvalidTimeFormat marks a schedule time that does not match the expected layout.
	ErrInvalidTimeFormat = fmt.Errorf("invalid time format: %w", ErrValidation)

	// ErrRateLimited marks a command rejected because its cooldown is active.
	ErrRateLimited = errors.New("command on cooldown")

	// ErrUnknownCommand marks a prefixed message naming no registered command.
	ErrUnknownCommand = errors.New("command not found")
)

// TransportError wraps a failure to reach a remote service.
type TransportError struct {
	Service string
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Service, e.Err)
}

// Unwrap exposes the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport as a match.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError creates a TransportError for service.
func NewTransportError(service string, err error) *TransportError {
	return &TransportError{Service: service, Err: err}
}

// ServerError represents a non-2xx response from a remote service.
type ServerError struct {
	Service    string
	StatusCode int
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// Is reports ErrServer as a match.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// NewServerError creates a ServerError for service.
func NewServerError(service string, statusCode int) *ServerError {
	return &ServerError{Service: service, StatusCode: statusCode}
}

// RateLimitError is returned when a user repeats a command within its cooldown.
type RateLimitError struct {
	Command    string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s on cooldown, retry after %s", e.Command, e.RetryAfter)
}

// Is reports ErrRateLimited as a match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

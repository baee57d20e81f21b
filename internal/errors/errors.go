package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a failure class surfaced to HTTP, MCP and CLI callers.
type ErrorCode string

const (
	ErrInvalidInput    ErrorCode = "INVALID_INPUT"    // 400
	ErrRecordNotFound  ErrorCode = "RECORD_NOT_FOUND" // 404
	ErrNoFlightFound   ErrorCode = "NO_FLIGHT_FOUND"  // 400
	ErrFlightNotFound  ErrorCode = "FLIGHT_NOT_FOUND" // 404
	ErrExternalService ErrorCode = "EXTERNAL_SERVICE" // 500
	ErrStorage         ErrorCode = "STORAGE"          // 500
	ErrLocationUnknown ErrorCode = "LOCATION_UNKNOWN" // 404
)

// ErrCredentialMissing is the cause carried by NewNotConfigured errors.
var ErrCredentialMissing = stderrors.New("credential not configured")

// AppError is a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInput creates a 400 error for a missing or malformed request field.
func NewInvalidInput(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Status:  400,
		Message: msg,
	}
}

// NewRecordNotFound creates a 404 error for an identity with no stored record.
func NewRecordNotFound(key string) *AppError {
	return &AppError{
		Code:    ErrRecordNotFound,
		Status:  404,
		Message: "No data found for this person",
		Details: map[string]any{"key": key},
	}
}

// NewNoFlightFound creates a 400 error for an operation that needs a flight entry.
func NewNoFlightFound(key string) *AppError {
	return &AppError{
		Code:    ErrNoFlightFound,
		Status:  400,
		Message: "No flight data found. Please search for a flight first.",
		Details: map[string]any{"key": key},
	}
}

// NewFlightNotFound creates a 404 error when no designator form matched a flight.
func NewFlightNotFound(designator string) *AppError {
	return &AppError{
		Code:    ErrFlightNotFound,
		Status:  404,
		Message: "No flight data found. The flight may not be currently active, or try a different format (e.g., AA100, DL1234).",
		Details: map[string]any{"flight": designator},
	}
}

// NewLocationUnknown creates a 404 error when geocoding found no place.
func NewLocationUnknown(name string) *AppError {
	return &AppError{
		Code:    ErrLocationUnknown,
		Status:  404,
		Message: "Location not found",
		Details: map[string]any{"name": name},
	}
}

// NewExternalService creates a 500 error for a failed collaborator call.
func NewExternalService(service string, err error) *AppError {
	msg := service + " request failed"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", service, err)
	}
	return &AppError{
		Code:    ErrExternalService,
		Status:  500,
		Message: msg,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// NewNotConfigured creates a 500 error for a collaborator missing its credential.
func NewNotConfigured(service string) *AppError {
	return &AppError{
		Code:    ErrExternalService,
		Status:  500,
		Message: service + " API key not configured",
		Details: map[string]any{"service": service},
		Err:     ErrCredentialMissing,
	}
}

// NewStorage creates a 500 error for a record document that cannot be read or written.
func NewStorage(path string, err error) *AppError {
	msg := "storage failure"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrStorage,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if an error is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotConfigured reports whether err stems from a missing credential.
func IsNotConfigured(err error) bool {
	return stderrors.Is(err, ErrCredentialMissing)
}

// MessageOf returns the AppError message in err's chain, or err.Error().
func MessageOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return 500
}

package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of domain error
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates that the input provided is invalid
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeRepository indicates a repository operation error
	ErrCodeRepository ErrorCode = "REPOSITORY_ERROR"

	// ErrCodeInvalidState indicates an invalid state transition
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeProbe indicates that the update probe could not complete a check
	ErrCodeProbe ErrorCode = "PROBE_ERROR"

	// ErrCodeServerConfig indicates that the authoritative server configuration is unusable
	ErrCodeServerConfig ErrorCode = "SERVER_CONFIG_ERROR"

	// ErrCodeReconfig indicates a failure inside a reconfiguration session
	ErrCodeReconfig ErrorCode = "RECONFIG_ERROR"

	// ErrCodeSchedule indicates a failure of the scheduling primitive itself
	ErrCodeSchedule ErrorCode = "SCHEDULE_ERROR"

	// ErrCodeUIUnavailable indicates that no interactive surface can be reached
	ErrCodeUIUnavailable ErrorCode = "UI_UNAVAILABLE"

	// ErrCodeRestart indicates that the restart mechanism failed
	ErrCodeRestart ErrorCode = "RESTART_ERROR"

	// ErrCodeTelemetry indicates a telemetry sink failure
	ErrCodeTelemetry ErrorCode = "TELEMETRY_ERROR"

	// ErrCodeTimezone indicates a timezone-related error
	ErrCodeTimezone ErrorCode = "TIMEZONE_ERROR"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// NewDomainErrorWithCause creates a new domain error with an underlying cause
func NewDomainErrorWithCause(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsErrorCode checks if an error, or any error it wraps, has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// ErrInvalidInput creates an invalid input error
func ErrInvalidInput(field string, reason string) *DomainError {
	return NewDomainError(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// ErrRepository creates a repository error
func ErrRepository(operation string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRepository, fmt.Sprintf("repository error in %s", operation), err).
		WithDetails("operation", operation)
}

// ErrInvalidState creates an invalid state error
func ErrInvalidState(entity string, currentState string, attemptedAction string) *DomainError {
	return NewDomainError(ErrCodeInvalidState,
		fmt.Sprintf("invalid state transition for %s: cannot %s in state %s", entity, attemptedAction, currentState)).
		WithDetails("entity", entity).
		WithDetails("currentState", currentState).
		WithDetails("attemptedAction", attemptedAction)
}

// Update probe errors

// ErrProbe creates a probe error for a failed source
func ErrProbe(source string, reason string) *DomainError {
	return NewDomainError(ErrCodeProbe, fmt.Sprintf("update probe error from %s: %s", source, reason)).
		WithDetails("source", source).
		WithDetails("reason", reason)
}

// ErrProbeWithCause creates a probe error with cause
func ErrProbeWithCause(source string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProbe, fmt.Sprintf("update probe error from %s", source), err).
		WithDetails("source", source)
}

// ErrServerConfig creates an error describing corrupt authoritative configuration
func ErrServerConfig(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeServerConfig, fmt.Sprintf("server configuration rejected: %s", reason), err).
		WithDetails("reason", reason)
}

// Reconfiguration errors

// ErrReconfig creates a reconfiguration session error
func ErrReconfig(operation string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeReconfig, fmt.Sprintf("reconfiguration failed in %s", operation), err).
		WithDetails("operation", operation)
}

// ErrSessionNotHeld is returned by Push when Pull has not acquired the session
func ErrSessionNotHeld(operation string) *DomainError {
	return ErrInvalidState("reconfig session", "released", operation)
}

// Scheduling and restart errors

// ErrSchedule creates an unrecoverable scheduling error
func ErrSchedule(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeSchedule, fmt.Sprintf("scheduler stopped: %s", reason), err).
		WithDetails("reason", reason)
}

// ErrUIUnavailable creates an error for a missing or stopped UI thread
func ErrUIUnavailable(operation string) *DomainError {
	return NewDomainError(ErrCodeUIUnavailable, fmt.Sprintf("user interface unavailable for %s", operation)).
		WithDetails("operation", operation)
}

// ErrRestart creates a restart mechanism error
func ErrRestart(version string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRestart, fmt.Sprintf("failed to restart into version %s", version), err).
		WithDetails("version", version)
}

// ErrTelemetry creates a telemetry sink error
func ErrTelemetry(sink string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTelemetry, fmt.Sprintf("telemetry sink %s failed", sink), err).
		WithDetails("sink", sink)
}

// Timezone-specific errors

// ErrTimezone creates a timezone error
func ErrTimezone(operation string, reason string) *DomainError {
	return NewDomainError(ErrCodeTimezone, fmt.Sprintf("timezone error in %s: %s", operation, reason)).
		WithDetails("operation", operation).
		WithDetails("reason", reason)
}

// ErrTimezoneParse creates a timezone parsing error
func ErrTimezoneParse(timezoneName string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTimezone, fmt.Sprintf("failed to parse timezone: %s", timezoneName), err).
		WithDetails("timezoneName", timezoneName)
}

// Package errors provides standardized error values for the notification engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Dispatch outcome taxonomy.
	ErrCodeRecipientNotFound    ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrCodePreferenceSuppressed ErrorCode = "PREFERENCE_SUPPRESSED"
	ErrCodeChannelUnavailable   ErrorCode = "CHANNEL_UNAVAILABLE"
	ErrCodeTransportFailure     ErrorCode = "TRANSPORT_FAILURE"

	// Store and configuration errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeLedgerWriteFailed        ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeTemplateRenderFailed     ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeTriggerConditionInvalid  ErrorCode = "TRIGGER_CONDITION_INVALID"
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRecipientNotFoundError marks a dispatch whose recipient has no directory entry.
func NewRecipientNotFoundError(recipientID, kind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientNotFound,
		Message:   "Recipient has no contact information on file",
		Details:   fmt.Sprintf("recipientId: %s, kind: %s", recipientID, kind),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelUnavailableError marks an adapter that is not configured for use.
func NewChannelUnavailableError(channel, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelUnavailable,
		Message:   fmt.Sprintf("%s transport not configured", channel),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailureError wraps an adapter error. Retryable is advisory only;
// the dispatcher records the failure and does not retry.
func NewTransportFailureError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailure,
		Message:   fmt.Sprintf("%s delivery failed", channel),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerWriteFailedError creates a retryable ledger persistence error.
func NewLedgerWriteFailedError(notificationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerWriteFailed,
		Message:   "Notification ledger write failed",
		Details:   fmt.Sprintf("notificationId: %s, error: %s", notificationID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTriggerConditionInvalidError creates a non-retryable condition payload error.
func NewTriggerConditionInvalidError(triggerType, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTriggerConditionInvalid,
		Message:   "Trigger condition payload is invalid",
		Details:   fmt.Sprintf("triggerType: %s, %s", triggerType, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// CodeOf extracts the ErrorCode from any error chain, or empty when the error
// carries no StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether the error chain carries a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeRecipientNotFound, ErrCodePreferenceSuppressed:
		return "recipient"
	case ErrCodeChannelUnavailable, ErrCodeTransportFailure:
		return "transport"
	case ErrCodeDatabaseConnectionFailed, ErrCodeQueryExecutionFailed, ErrCodeLedgerWriteFailed:
		return "persistence"
	case ErrCodeTemplateRenderFailed, ErrCodeTriggerConditionInvalid, ErrCodeInvalidInput:
		return "configuration"
	default:
		return "internal"
	}
}

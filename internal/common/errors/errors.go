// Package errors provides standardized error handling for the click
// notification pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeProcedureExecutionFailed ErrorCode = "PROCEDURE_EXECUTION_FAILED"
	ErrCodeDocumentParseFailed      ErrorCode = "DOCUMENT_PARSE_FAILED"

	ErrCodeTokenSigningFailed ErrorCode = "TOKEN_SIGNING_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeNotificationRejected   ErrorCode = "NOTIFICATION_REJECTED"
	ErrCodeConfirmationGap        ErrorCode = "CONFIRMATION_GAP"

	ErrCodeClickRowInvalid   ErrorCode = "CLICK_ROW_INVALID"
	ErrCodeContentUnresolved ErrorCode = "CONTENT_UNRESOLVED"
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

// NewProcedureExecutionFailedError creates a retryable stored procedure error.
func NewProcedureExecutionFailedError(procedure string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProcedureExecutionFailed,
		Message:   "Stored procedure execution error",
		Details:   fmt.Sprintf("procedure: %s, error: %s", procedure, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentParseFailedError creates a non-retryable JSON document error.
func NewDocumentParseFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentParseFailed,
		Message:   "Result document could not be parsed",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenSigningFailedError creates a non-retryable signing error. A batch
// run aborts on this condition before any notification is attempted.
func NewTokenSigningFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenSigningFailed,
		Message:   "Bearer token could not be signed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable delivery error for one record.
func NewNotificationSendFailedError(clickID int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification request failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"clickId": clickID},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationRejectedError creates a retryable error for a non-success status.
func NewNotificationRejectedError(clickID, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationRejected,
		Message:   "Notification rejected by the remote endpoint",
		Details:   fmt.Sprintf("status: %d", status),
		Retryable: true,
		Metadata:  map[string]interface{}{"clickId": clickID, "status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewConfirmationGapError marks a click that was accepted remotely but whose
// local confirmation updated no row. Not retryable here; re-running would
// re-notify and the gap is handed to the audit sink instead.
func NewConfirmationGapError(clickID int) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfirmationGap,
		Message:   "Click notified but not confirmed locally",
		Retryable: false,
		Metadata:  map[string]interface{}{"clickId": clickID},
		Timestamp: time.Now().UTC(),
	}
}

// NewClickRowInvalidError creates a non-retryable per-record validation error.
func NewClickRowInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClickRowInvalid,
		Message:   "Pending click row is missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContentUnresolvedError creates a non-retryable error for a click
// registration whose content id could not be resolved.
func NewContentUnresolvedError(contentID int) *StandardError {
	return &StandardError{
		Code:      ErrCodeContentUnresolved,
		Message:   "Content could not be resolved to a restaurant and language",
		Details:   fmt.Sprintf("contentId: %d", contentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a StandardError flagged retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

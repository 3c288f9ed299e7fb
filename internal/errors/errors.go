// Package errors provides a lightweight structured error type (NotedownError)
// for category-based classification across the encoding pipeline, the note.com
// API collaborators, and the resolution engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a NotedownError.
type ErrorCategory string

const (
	// Input-shape errors raised synchronously by the pure transforms
	// (unsupported embed URL, malformed placeholder payload).
	CategoryValidation ErrorCategory = "validation"

	// A collaborator response was missing a required field. Never
	// substituted with a default.
	CategoryIntegrity ErrorCategory = "integrity"

	// A VERIFY poll against the live surface exhausted its timeout.
	CategoryTimeout ErrorCategory = "timeout"

	// A driver action against the live surface failed outright.
	CategoryAction ErrorCategory = "action"

	// External HTTP/transport failures.
	CategoryNetwork ErrorCategory = "network"

	// Runtime and infrastructure errors.
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// NotedownError is a structured error with category, retryability, and context.
type NotedownError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for NotedownError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *NotedownError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping.
func (e *NotedownError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *NotedownError) WithContext(key string, value any) *NotedownError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the severity of the error.
func (e *NotedownError) WithSeverity(severity ErrorSeverity) *NotedownError {
	e.Severity = severity
	return e
}

// New creates a new NotedownError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *NotedownError {
	return &NotedownError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new NotedownError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *NotedownError {
	return &NotedownError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Retryable creates a new retryable NotedownError.
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *NotedownError {
	return &NotedownError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// RetryableWrap creates a retryable NotedownError wrapping a transient cause.
func RetryableWrap(err error, category ErrorCategory, message string) *NotedownError {
	return &NotedownError{
		Category:  category,
		Severity:  SeverityWarning,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var ne *NotedownError
	if errors.As(err, &ne) {
		return ne.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ne *NotedownError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if the error is not a NotedownError.
func GetCategory(err error) ErrorCategory {
	var ne *NotedownError
	if errors.As(err, &ne) {
		return ne.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error (bad input shape).
func ValidationError(message string) *NotedownError {
	return &NotedownError{
		Category: CategoryValidation,
		Severity: SeverityWarning,
		Message:  message,
	}
}

// IntegrityError creates a new data-integrity error (collaborator response
// missing a required field).
func IntegrityError(message string) *NotedownError {
	return &NotedownError{
		Category: CategoryIntegrity,
		Severity: SeverityError,
		Message:  message,
	}
}

// TimeoutError creates a new retryable timeout error (VERIFY poll exhausted).
func TimeoutError(message string) *NotedownError {
	return &NotedownError{
		Category:  CategoryTimeout,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: true,
	}
}

// ActionError wraps a failed driver action against the live surface.
func ActionError(err error, message string) *NotedownError {
	return &NotedownError{
		Category: CategoryAction,
		Severity: SeverityWarning,
		Message:  message,
		Cause:    err,
	}
}

// WrapError wraps an existing error with severity SeverityError.
func WrapError(err error, category ErrorCategory, message string) *NotedownError {
	return &NotedownError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}

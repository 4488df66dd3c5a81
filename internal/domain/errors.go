package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for different failure scenarios
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrValidation       = "VALIDATION_ERROR"
	ErrNotFound         = "NOT_FOUND"
	ErrUnknownPathology = "UNKNOWN_PATHOLOGY"
	ErrSubmitInFlight   = "SUBMIT_IN_FLIGHT"
	ErrExternalAPI      = "EXTERNAL_API_ERROR"
	ErrCache            = "CACHE_ERROR"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
)

// ReviewError is the standardized error carried across the service layer.
type ReviewError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	// Retryable marks transient failures the caller may retry, such as
	// backend transport errors. Not-found and validation errors are not.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface
func (e *ReviewError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewReviewError creates a new ReviewError with timestamp
func NewReviewError(code, message, details string) *ReviewError {
	return &ReviewError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Retryable: code == ErrExternalAPI || code == ErrCache,
	}
}

// ValidationError represents input validation errors rejected locally,
// before any network call is made.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// CodeOf extracts the review error code from err, or ErrInternalServer when
// err is not a ReviewError.
func CodeOf(err error) string {
	var re *ReviewError
	if errors.As(err, &re) {
		return re.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation
	}
	return ErrInternalServer
}

// IsNotFound reports whether err is a terminal not-found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrNotFound
}

// IsRetryable reports whether the caller should be offered a retry.
func IsRetryable(err error) bool {
	var re *ReviewError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryRejected       ErrorCategory = "rejected"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategorySystemError    ErrorCategory = "system_error"
	CategoryMalformed      ErrorCategory = "malformed_response"
	CategoryNetworkError   ErrorCategory = "network_error"
	CategoryTimeout        ErrorCategory = "timeout"
)

// ProviderError means the payment provider answered and refused the request
type ProviderError struct {
	Operation  string
	Type       string // provider error type, e.g. INVALID_REQUEST, BILLING_KEY_NOT_FOUND
	Message    string
	StatusCode int
	Category   ErrorCategory
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: provider rejected request (%d %s): %s", e.Operation, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: provider rejected request (%d): %s", e.Operation, e.StatusCode, e.Message)
}

// IsRetriable reports whether the same request may succeed later
func (e *ProviderError) IsRetriable() bool {
	return e.Category == CategorySystemError
}

// NewProviderError creates a provider error and derives its category from the status
func NewProviderError(operation string, statusCode int, errType, message string) *ProviderError {
	return &ProviderError{
		Operation:  operation,
		StatusCode: statusCode,
		Type:       errType,
		Message:    message,
		Category:   categoryForStatus(statusCode),
	}
}

// NewMalformedResponseError reports a 2xx response that could not be understood
func NewMalformedResponseError(operation, message string) *ProviderError {
	return &ProviderError{
		Operation: operation,
		Message:   message,
		Category:  CategoryMalformed,
	}
}

func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 404:
		return CategoryNotFound
	case status == 400 || status == 409 || status == 422:
		return CategoryInvalidRequest
	case status >= 500:
		return CategorySystemError
	default:
		return CategoryRejected
	}
}

// TransportError means the provider could not be reached or did not answer in time
type TransportError struct {
	Err       error
	Operation string
	Category  ErrorCategory
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: provider unreachable: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying network error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetriable is always true: nothing reached the provider, or its answer was lost
func (e *TransportError) IsRetriable() bool {
	return true
}

// NewTransportError classifies err as a timeout or a network failure
func NewTransportError(operation string, err error) *TransportError {
	category := CategoryNetworkError
	if errors.Is(err, context.DeadlineExceeded) {
		category = CategoryTimeout
	}
	return &TransportError{
		Operation: operation,
		Err:       err,
		Category:  category,
	}
}

// IsProviderError reports whether err carries a *ProviderError
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsTransportError reports whether err carries a *TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

package domain

import (
	"fmt"
	"time"
)

// APIError represents a standardized error response returned by the HTTP and MCP transports
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput        = "INVALID_INPUT"
	ErrCalculatorNotFound  = "CALCULATOR_NOT_FOUND"
	ErrCategoryNotFound    = "CATEGORY_NOT_FOUND"
	ErrRecordNotFound      = "RECORD_NOT_FOUND"
	ErrDatabaseError       = "DATABASE_ERROR"
	ErrRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer      = "INTERNAL_SERVER_ERROR"
	ErrValidation          = "VALIDATION_ERROR"
	ErrStorageUnavailable  = "STORAGE_UNAVAILABLE"
	ErrComputationRejected = "COMPUTATION_REJECTED"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// UnknownCalculatorError is returned when a calculator id is not in the registry.
// It matches ErrNotFound with errors.Is.
type UnknownCalculatorError struct {
	ID string
}

// Error implements the error interface
func (e *UnknownCalculatorError) Error() string {
	return fmt.Sprintf("unknown calculator %q", e.ID)
}

// Is lets callers test for ErrNotFound without knowing the concrete type.
func (e *UnknownCalculatorError) Is(target error) bool {
	return target == ErrNotFound
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

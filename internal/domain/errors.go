package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
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

// Is matches domain errors by code and message so that wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidInput         = NewDomainError(ErrCodeValidation, "invalid input")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidExportFormat  = NewDomainError(ErrCodeValidation, "invalid export format")
	ErrNoDueDate            = NewDomainError(ErrCodeValidation, "no action items with due dates found")
)

// Not found errors
var (
	ErrNoteNotFound   = NewDomainError(ErrCodeNotFound, "note not found")
	ErrActionNotFound = NewDomainError(ErrCodeNotFound, "action item not found")
)

// Configuration errors
var (
	ErrModelNotConfigured = NewDomainError(ErrCodeConfiguration, "model API key not configured")
)

// Stage errors
var (
	ErrStageTimeout = NewDomainError(ErrCodeTimeout, "stage timed out")
)

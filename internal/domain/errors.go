package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so the sentinels below
// can be used with errors.Is regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable interface for errors that can be retried
type Retryable interface {
	IsRetryable() bool
}

const (
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	ErrCodeAlreadyFinalized    = "ALREADY_FINALIZED"
	ErrCodeBusinessRule        = "BUSINESS_RULE_VIOLATION"
)

var (
	ErrValidation          = &DomainError{Code: ErrCodeValidation, Message: "validation failed"}
	ErrForbidden           = &DomainError{Code: ErrCodeForbidden, Message: "forbidden"}
	ErrNotFound            = &DomainError{Code: ErrCodeNotFound, Message: "not found"}
	ErrIdempotencyConflict = &DomainError{Code: ErrCodeIdempotencyConflict, Message: "idempotency conflict"}
	ErrAlreadyFinalized    = &DomainError{Code: ErrCodeAlreadyFinalized, Message: "already finalized"}
	ErrBusinessRule        = &DomainError{Code: ErrCodeBusinessRule, Message: "business rule violation"}
)

func NewValidationError(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return NewValidationError("%s is required", field)
}

func NewForbiddenError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: message,
	}
}

func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func NewIdempotencyConflictError(key string) *DomainError {
	return &DomainError{
		Code:    ErrCodeIdempotencyConflict,
		Message: fmt.Sprintf("idempotency key %s reused with a different request", key),
	}
}

func NewAlreadyFinalizedError(resource, id string, status string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAlreadyFinalized,
		Message: fmt.Sprintf("%s %s is already finalized with status %s", resource, id, status),
	}
}

func NewBusinessRuleError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeBusinessRule,
		Message: message,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

package shared

import (
	"errors"
	"fmt"
)

// Error codes understood by the HTTP layer
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeStateConflict        = "STATE_CONFLICT"
	CodeNotFound             = "NOT_FOUND"
	CodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	CodeDerivedRecordFailure = "DERIVED_RECORD_FAILURE"
	CodeInconsistentState    = "INCONSISTENT_STATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) matches any not-found error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrStateConflict       = NewDomainError(CodeStateConflict, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeStateConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInsufficientBalance = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
)

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewStateConflictError reports an action attempted from a status that does not allow it
func NewStateConflictError(action, status string) *DomainError {
	return NewDomainError(CodeStateConflict, fmt.Sprintf("cannot %s in status %s", action, status))
}

// NewNotFoundError reports an unknown entity id
func NewNotFoundError(entity, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// NewInsufficientBalanceError reports a payment larger than the account balance
func NewInsufficientBalanceError(accountID, available, required string) *DomainError {
	return NewDomainError(CodeInsufficientBalance,
		fmt.Sprintf("account %s balance %s is less than required %s", accountID, available, required))
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStateConflict reports whether err is a state-conflict domain error
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// IsValidation reports whether err is a validation domain error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

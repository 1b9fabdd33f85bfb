package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Ledger errors
	ErrInsufficientFunds     ErrorCode = "INSUFFICIENT_FUNDS"
	ErrInsufficientResources ErrorCode = "INSUFFICIENT_RESOURCES"
	ErrAlreadyClaimed        ErrorCode = "ALREADY_CLAIMED"
	ErrNotFound              ErrorCode = "NOT_FOUND"

	// Rule errors
	ErrCooldownActive   ErrorCode = "COOLDOWN_ACTIVE"
	ErrJailed           ErrorCode = "JAILED"
	ErrPremiumRequired  ErrorCode = "PREMIUM_REQUIRED"
	ErrLimitReached     ErrorCode = "LIMIT_REACHED"
	ErrInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrInvalidState     ErrorCode = "INVALID_STATE"
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED"

	// System errors
	ErrStorage       ErrorCode = "STORAGE_ERROR"
	ErrRateLimited   ErrorCode = "RATE_LIMITED"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// EconomyError represents an economy-related error
type EconomyError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any

	// RetryAfter is set on cooldown-style errors
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *EconomyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EconomyError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an EconomyError carrying the same code, so
// errors.Is(err, types.NewError(types.ErrNotFound, "")) works across wrapping.
func (e *EconomyError) Is(target error) bool {
	t, ok := target.(*EconomyError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new EconomyError
func NewError(code ErrorCode, message string) *EconomyError {
	return &EconomyError{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new EconomyError with a formatted message
func Errorf(code ErrorCode, format string, args ...interface{}) *EconomyError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError wraps an existing error in an EconomyError
func WrapError(code ErrorCode, message string, err error) *EconomyError {
	return &EconomyError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewCooldownError creates an error that tells the caller how long to wait
func NewCooldownError(code ErrorCode, message string, retryAfter time.Duration) *EconomyError {
	return &EconomyError{
		Code:       code,
		Message:    message,
		RetryAfter: retryAfter,
	}
}

// StorageError wraps a persistent-store failure
func StorageError(op string, err error) *EconomyError {
	return WrapError(ErrStorage, op, err)
}

// IsCode checks if an error is an EconomyError and has a specific code
func IsCode(err error, code ErrorCode) bool {
	var econErr *EconomyError
	if err == nil {
		return false
	}
	if ok := As(err, &econErr); !ok {
		return false
	}
	return econErr.Code == code
}

// CodeOf returns the code of the first EconomyError in the chain, or
// ErrInternalError for anything else.
func CodeOf(err error) ErrorCode {
	var econErr *EconomyError
	if As(err, &econErr) {
		return econErr.Code
	}
	return ErrInternalError
}

// As is a helper function to find an EconomyError in an error chain
func As(err error, target **EconomyError) bool {
	if target == nil || err == nil {
		return false
	}
	return errors.As(err, target)
}

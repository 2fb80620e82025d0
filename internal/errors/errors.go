// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	// ErrNotReady means no valid reference price has arrived yet.
	// Callers should retry rather than treat it as a rejection.
	ErrNotReady = errors.New("market data not ready")

	ErrAccountNotFound  = errors.New("account not found")
	ErrPositionNotFound = errors.New("position not found")
	ErrUnknownExpiry    = errors.New("unknown expiry")
	ErrOrderRejected    = errors.New("order rejected")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// ValidationError represents a rejected order parameter. Validation
// failures are synchronous and never mutate ledger state.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// InsufficientBalanceError is returned when an account cannot cover an
// order's premium or margin. Amounts are in BTC.
type InsufficientBalanceError struct {
	AccountID string
	Required  float64
	Available float64
	Purpose   string // "premium", "margin"
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: need %.8f BTC, have %.8f BTC",
		e.Purpose, e.Required, e.Available)
}

// NewInsufficientBalanceError creates a new InsufficientBalanceError.
func NewInsufficientBalanceError(accountID string, required, available float64, purpose string) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		AccountID: accountID,
		Required:  required,
		Available: available,
		Purpose:   purpose,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

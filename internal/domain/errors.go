package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrConflict             = errors.New("conflict")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrInsufficientMiles    = errors.New("insufficient miles")
	ErrMembershipRequired   = errors.New("membership required")
	ErrTransactionFailed    = errors.New("transaction failed")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// CapacityError is returned when a flight cannot seat the requested passengers.
type CapacityError struct {
	FlightID  int64
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity on flight %d: available %d, requested %d",
		e.FlightID, e.Available, e.Requested)
}

func (e *CapacityError) Unwrap() error {
	return ErrInsufficientCapacity
}

// MilesError is returned when a profile cannot fund a miles purchase.
type MilesError struct {
	Email    string
	Balance  int64
	Required int64
}

func (e *MilesError) Error() string {
	return fmt.Sprintf("insufficient miles for %s: balance %d, required %d",
		e.Email, e.Balance, e.Required)
}

func (e *MilesError) Unwrap() error {
	return ErrInsufficientMiles
}

// TxError wraps a store-level failure. The transaction it came from was rolled back.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrTransactionFailed, e.Err)
}

func (e *TxError) Unwrap() []error {
	return []error{ErrTransactionFailed, e.Err}
}

// IsBusinessError reports whether err is a typed rule violation rather than a store failure.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientCapacity) ||
		errors.Is(err, ErrInsufficientMiles) ||
		errors.Is(err, ErrMembershipRequired)
}

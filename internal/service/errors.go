package service

import (
	"errors"
	"fmt"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvestmentNotFound  = errors.New("investment not found")
	ErrStudentNotFound     = errors.New("student profile not found")
	ErrStudentExists       = errors.New("student profile already registered")
	ErrStudentNotVerified  = errors.New("student profile is not verified")
	ErrNotEligible         = errors.New("user is not eligible for ramp operations")
	ErrNotReady            = errors.New("investment is not ready for withdrawal")
	ErrNotActive           = errors.New("investment is not active")
)

// ValidationError rejects bad input before any side effect happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StillLockedError is returned when a withdrawal is requested before the
// lock period has elapsed. RemainingDays is recomputed from the
// authoritative lock end on every request.
type StillLockedError struct {
	RemainingDays int
}

func (e *StillLockedError) Error() string {
	return fmt.Sprintf("investment is still locked, %d days remaining", e.RemainingDays)
}

// UnrecognizedStatusError is returned when a provider or contract reports a
// status code outside the fixed mapping table. The transaction is left
// unchanged; the payload needs manual investigation.
type UnrecognizedStatusError struct {
	Status string
}

func (e *UnrecognizedStatusError) Error() string {
	return fmt.Sprintf("unrecognized provider status %q", e.Status)
}

// GatewayError wraps a failed external call. During Initiate it is absorbed
// into the transaction's own terminal FAILED state rather than surfaced raw.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

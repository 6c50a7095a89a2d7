// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrEngineInactive      = errors.New("engine inactive")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrRateLimited         = errors.New("rate limited")
	ErrRetriesExhausted    = errors.New("all endpoints exhausted")
	ErrDuplicateExecution  = errors.New("duplicate execution attempt")
	ErrQuoteBelowMinimum   = errors.New("quote below minimum output")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrEntryNotFound       = errors.New("queue entry not found")
	ErrEntryNotCancellable = errors.New("entry is no longer cancellable")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrDatabaseError       = errors.New("database error")
)

// ValidationError represents a malformed or missing signal field.
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

// EndpointError represents a failure at one swap endpoint's quote, swap,
// or submit step. RateLimited failures are retried against the same
// endpoint with backoff; all others advance to the next endpoint.
type EndpointError struct {
	Venue       string
	Step        string // quote, swap, submit, confirm
	RateLimited bool
	Err         error
}

func (e *EndpointError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("endpoint error [%s] %s: rate limited: %v", e.Venue, e.Step, e.Err)
	}
	return fmt.Sprintf("endpoint error [%s] %s: %v", e.Venue, e.Step, e.Err)
}

func (e *EndpointError) Unwrap() error {
	if e.RateLimited {
		return ErrRateLimited
	}
	return e.Err
}

// NewEndpointError creates a new EndpointError.
func NewEndpointError(venue, step string, rateLimited bool, err error) *EndpointError {
	return &EndpointError{
		Venue:       venue,
		Step:        step,
		RateLimited: rateLimited,
		Err:         err,
	}
}

// IsRateLimited reports whether the error chain contains a rate-limit-class failure.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var ep *EndpointError
	if errors.As(err, &ep) {
		return ep.RateLimited
	}
	return false
}

// CapitalError represents a ledger operation exceeding availability.
type CapitalError struct {
	Op        string
	Requested float64
	Available float64
}

func (e *CapitalError) Error() string {
	return fmt.Sprintf("capital error [%s]: requested %.4f, available %.4f", e.Op, e.Requested, e.Available)
}

func (e *CapitalError) Unwrap() error {
	return ErrInsufficientCapital
}

// NewCapitalError creates a new CapitalError.
func NewCapitalError(op string, requested, available float64) *CapitalError {
	return &CapitalError{
		Op:        op,
		Requested: requested,
		Available: available,
	}
}

// ExecutionError represents a terminal execution failure for one queue entry.
type ExecutionError struct {
	QueueID  string
	Mint     string
	Venues   []string
	Attempts int
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error [%s] %s after %d attempts across %v: %v",
		e.QueueID, e.Mint, e.Attempts, e.Venues, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(queueID, mint string, venues []string, attempts int, err error) *ExecutionError {
	return &ExecutionError{
		QueueID:  queueID,
		Mint:     mint,
		Venues:   venues,
		Attempts: attempts,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

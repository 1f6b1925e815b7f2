package shared

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError rejects a request before anything is written
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// NotFoundError reports a missing resource. Domain packages return their own
// typed errors which expose this through NotFound().
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotFound lets typed domain errors be recognised by IsNotFound
func (e NotFoundError) NotFound() bool {
	return true
}

// IsNotFound reports whether any error in the chain marks a missing resource
func IsNotFound(err error) bool {
	var nf interface{ NotFound() bool }
	return errors.As(err, &nf) && nf.NotFound()
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// StoreError is an I/O failure that survived the retry boundary
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err came from an expired deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

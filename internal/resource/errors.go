package resource

import (
	"errors"
	"fmt"
)

// ErrHandlerNotFound is returned when no handler serves a resource type.
type ErrHandlerNotFound struct {
	Type string
}

func (e ErrHandlerNotFound) Error() string {
	return fmt.Sprintf("no handler registered for resource type '%s'", e.Type)
}

// ResourceError is the base interface for all handler errors.
// The executor uses it to decide how a failure is reported.
type ResourceError interface {
	error
	ResourceID() string
	Unwrap() error
}

// ValidationError represents parameters the handler cannot act on, such as
// node names that do not resolve.
type ValidationError struct {
	ID  string
	Err error
}

// NewValidationError creates a new ValidationError.
func NewValidationError(resourceID string, err error) *ValidationError {
	return &ValidationError{ID: resourceID, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "validation error in resource " + e.ID
	}
	return "validation error in resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the failing resource.
func (e *ValidationError) ResourceID() string { return e.ID }

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches any ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ExecutionError represents a failed mutating request.
type ExecutionError struct {
	ID  string
	Err error
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(resourceID string, err error) *ExecutionError {
	return &ExecutionError{ID: resourceID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return "execution error in resource " + e.ID
	}
	return "execution error in resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the failing resource.
func (e *ExecutionError) ResourceID() string { return e.ID }

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// Is matches any ExecutionError.
func (e *ExecutionError) Is(target error) bool {
	_, ok := target.(*ExecutionError)
	return ok
}

// StateError represents a failure to read current state.
type StateError struct {
	ID  string
	Err error
}

// NewStateError creates a new StateError.
func NewStateError(resourceID string, err error) *StateError {
	return &StateError{ID: resourceID, Err: err}
}

func (e *StateError) Error() string {
	if e.Err == nil {
		return "state error in resource " + e.ID
	}
	return "state error in resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the failing resource.
func (e *StateError) ResourceID() string { return e.ID }

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// Is matches any StateError.
func (e *StateError) Is(target error) bool {
	_, ok := target.(*StateError)
	return ok
}

// AsResourceError extracts a ResourceError from err's chain.
func AsResourceError(err error) (ResourceError, bool) {
	var resErr ResourceError
	if errors.As(err, &resErr) {
		return resErr, true
	}
	return nil, false
}

package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for the controller's failure taxonomy
var (
	ErrNotFound     = errors.New("resource not found")
	ErrStoreFailure = errors.New("store operation failed")
	ErrInvalidState = errors.New("device not in a valid state for this operation")
	ErrTaskConflict = errors.New("task of this kind already queued")
	ErrMissingField = errors.New("required field missing")
)

// StateError reports a task precondition that the device's current
// lifecycle state does not satisfy. Raised at enqueue time; the device
// is never mutated.
type StateError struct {
	Operation string
	State     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("device not in correct state for %s (state %s)", e.Operation, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// NewStateError creates a state error
func NewStateError(operation, state string) *StateError {
	return &StateError{Operation: operation, State: state}
}

// ConflictError reports a unique-task collision on a device's queue.
type ConflictError struct {
	Task string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already queued, will not enqueue", e.Task)
}

func (e *ConflictError) Unwrap() error {
	return ErrTaskConflict
}

// NewConflictError creates a conflict error
func NewConflictError(task string) *ConflictError {
	return &ConflictError{Task: task}
}

// NotFoundError reports a missing row with its lookup key.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

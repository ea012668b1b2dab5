package apierrors

import (
	"fmt"

	goferrors "github.com/go-faster/errors"
)

// StorageError wraps a failure from the repository layer (the
// database connection, a query, or a transaction) with the operation
// that was attempted, so callers never need to inspect driver-specific
// error types.
type StorageError struct {
	Operation string
	cause     error
}

// NewStorageError wraps cause with the repository operation that failed.
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{Operation: operation, cause: goferrors.Wrap(cause, operation)}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Operation, e.cause)
}

// Unwrap exposes the underlying driver error to errors.Is/errors.As.
func (e *StorageError) Unwrap() error {
	return e.cause
}

// ToRFC7807 converts the error to its wire representation. Storage
// failures are reported as retryable service-unavailable problems
// rather than leaking driver internals.
func (e *StorageError) ToRFC7807() *RFC7807Problem {
	return NewServiceUnavailableProblem(fmt.Sprintf("%s failed", e.Operation))
}

// ExecutionError reports a failed world-effect dispatch for a task.
// Unlike StorageError, it is recorded as the task's ErrorMessage and
// does not abort the remainder of the build's queue.
type ExecutionError struct {
	TaskID   string
	TaskType string
	cause    error
}

// NewExecutionError wraps cause with the task that failed to execute.
func NewExecutionError(taskID, taskType string, cause error) *ExecutionError {
	return &ExecutionError{TaskID: taskID, TaskType: taskType, cause: cause}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s (%s) failed: %v", e.TaskID, e.TaskType, e.cause)
}

// Unwrap exposes the underlying world-effect error to errors.Is/errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.cause
}

// ToRFC7807 converts the error to its wire representation.
func (e *ExecutionError) ToRFC7807() *RFC7807Problem {
	return NewInternalErrorProblem(e.Error())
}

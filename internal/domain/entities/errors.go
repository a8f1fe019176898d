package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a ref, repository, issue or file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when the remote service refuses to create something that exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is returned for malformed configuration or input. It is never retried.
	ErrValidation = errors.New("validation error")

	// ErrRemoteService wraps network, rate-limit and 5xx failures after retries are exhausted.
	ErrRemoteService = errors.New("remote service error")

	// ErrRollback marks a failure that happened while compensating a partial operation.
	ErrRollback = errors.New("rollback error")
)

// NewValidationError builds an ErrValidation with a formatted detail message.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PreflightConflictError is returned when the conflict pre-check of a coordinated
// operation finds refs that already exist. No repository has been mutated.
type PreflightConflictError struct {
	Ref          string
	Repositories []string
}

func (e *PreflightConflictError) Error() string {
	return fmt.Sprintf(
		"ref %q already exists in %d repositories: %s",
		e.Ref, len(e.Repositories), strings.Join(e.Repositories, ", "),
	)
}

func (e *PreflightConflictError) Unwrap() error { return ErrAlreadyExists }

// CoordinationError is returned when a critical repository fails during a coordinated
// operation. It carries the original failure and the result of the compensating rollback.
type CoordinationError struct {
	Repository string
	Cause      error
	Report     *CoordinatedOperationReport
	Rollback   *RollbackSummary
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("critical repository %s failed: %v", e.Repository, e.Cause)
}

func (e *CoordinationError) Unwrap() error { return e.Cause }

// Package errs defines the core-visible error taxonomy shared by the
// catalog, the hypervisor client/supervisor, and the lifecycle manager.
// The HTTP layer maps these 1:1 onto status codes.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a VM id has no corresponding record.
	ErrNotFound = errors.New("vm not found")

	// ErrAlreadyExists is returned when a create request reuses a live name.
	ErrAlreadyExists = errors.New("vm already exists")

	// ErrInvalidState is returned when an operation is not valid for the
	// VM's current state.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrFirecracker wraps process-spawn or hypervisor-API failures.
	ErrFirecracker = errors.New("firecracker error")

	// ErrPersistence wraps catalog failures.
	ErrPersistence = errors.New("persistence error")
)

// NotFound wraps ErrNotFound with the offending id.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// AlreadyExists wraps ErrAlreadyExists with the offending name.
func AlreadyExists(name string) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
}

// InvalidState wraps ErrInvalidState with the current state and attempted operation.
func InvalidState(current, operation string) error {
	return fmt.Errorf("%w: cannot %s from state %s", ErrInvalidState, operation, current)
}

// Firecracker wraps ErrFirecracker with diagnostic detail.
func Firecracker(detail string) error {
	return fmt.Errorf("%w: %s", ErrFirecracker, detail)
}

// FirecrackerWrap wraps an underlying error as a firecracker error.
func FirecrackerWrap(detail string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrFirecracker, detail, cause)
}

// Persistence wraps ErrPersistence with diagnostic detail.
func Persistence(detail string) error {
	return fmt.Errorf("%w: %s", ErrPersistence, detail)
}

// PersistenceWrap wraps an underlying error as a persistence error.
func PersistenceWrap(detail string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, detail, cause)
}

// Package errors defines sentinel errors shared across the webverse core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// Lifecycle errors. ErrAnotherLabBusy covers both a lab that is
	// mid-transition and one that holds the runtime lock.
	ErrAnotherLabBusy = errors.New("another lab is busy")
	ErrExecutorBusy   = errors.New("an operation is already running for this lab")
	ErrPrecondition   = errors.New("precondition failed")

	// Registry errors
	ErrLabNotFound        = errors.New("lab not found")
	ErrInvalidManifest    = errors.New("invalid lab manifest")
	ErrMissingComposeFile = errors.New("compose file not found")

	// Authentication errors
	ErrAuthRequired       = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// API errors
	ErrAPIConnection = errors.New("API connection failed")
	ErrAPIResponse   = errors.New("invalid API response")

	// Bundle errors
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrUnsafeArchive    = errors.New("refusing to extract unsafe zip entry")
)

// Wrap wraps an error with additional context
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is checks if the error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

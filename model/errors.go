package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration classifies invalid or missing parameter combinations.
	ErrConfiguration = errors.New("configuration error")

	// ErrNumerical classifies rank deficiency, failed factorizations and
	// non-finite results.
	ErrNumerical = errors.New("numerical error")

	// ErrStorage classifies failures reading or writing persisted artifacts.
	ErrStorage = errors.New("storage error")
)

// ConfigurationError reports an invalid parameter.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Field  string
	Reason string
	cause  error
}

// NewConfigurationError returns a ConfigurationError wrapping cause.
func NewConfigurationError(field, reason string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason, cause: cause}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NumericalError reports a linear-algebra failure.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type NumericalError struct {
	Op     string
	Reason string
	cause  error
}

// NewNumericalError returns a NumericalError wrapping cause.
func NewNumericalError(op, reason string, cause error) *NumericalError {
	return &NumericalError{Op: op, Reason: reason, cause: cause}
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical error: %s: %s", e.Op, e.Reason)
}

func (e *NumericalError) Unwrap() error { return e.cause }

// Is reports whether target is ErrNumerical.
func (e *NumericalError) Is(target error) bool { return target == ErrNumerical }

// StorageError reports a missing or malformed persisted artifact.
//
// NotFound distinguishes the recoverable "compute fresh" case from a fatal
// malformed artifact.
type StorageError struct {
	Name     string
	Reason   string
	notFound bool
	cause    error
}

// NewStorageError returns a fatal StorageError wrapping cause.
func NewStorageError(name, reason string, cause error) *StorageError {
	return &StorageError{Name: name, Reason: reason, cause: cause}
}

// NewNotFoundError returns a recoverable StorageError for a missing artifact.
func NewNotFoundError(name string, cause error) *StorageError {
	return &StorageError{Name: name, Reason: "not found", notFound: true, cause: cause}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Name, e.Reason)
}

func (e *StorageError) Unwrap() error { return e.cause }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NotFound reports whether the artifact was absent rather than malformed.
func (e *StorageError) NotFound() bool { return e.notFound }

// IsNotFound reports whether err is a StorageError for a missing artifact.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.notFound
}

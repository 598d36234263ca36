package randls

import (
	"errors"

	"github.com/hupe1980/randls/model"
)

var (
	// ErrConfiguration classifies invalid or missing parameter combinations.
	ErrConfiguration = model.ErrConfiguration

	// ErrNumerical classifies rank deficiency and non-finite results.
	ErrNumerical = model.ErrNumerical

	// ErrStorage classifies failures reading or writing persisted artifacts.
	ErrStorage = model.ErrStorage

	// ErrEmpty is returned by Median for an empty input.
	ErrEmpty = errors.New("no values")
)

// ConfigurationError reports an invalid parameter.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError = model.ConfigurationError

// NumericalError reports a linear-algebra failure.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type NumericalError = model.NumericalError

// StorageError reports a missing or malformed persisted artifact.
type StorageError = model.StorageError

// IsNotFound reports whether err is a StorageError for a missing artifact.
func IsNotFound(err error) bool {
	return model.IsNotFound(err)
}

// Package model defines the types shared by the sketching engine, the solvers
// and the public randls API.
//
// # Enumerations
//
//   - SolverType: LowPrecision (one-shot sketched solve) or HighPrecision
//     (sketch-preconditioned LSQR)
//   - SketchType: NoSketch, Projection or Sampling
//   - ProjectionType: Gaussian, Rademacher, CW or SRDHT
//
// # Errors
//
// Every failure surfaced by the core belongs to one of three classes:
//
//   - ConfigurationError: invalid or missing parameter combination, raised
//     before any partition work starts
//   - NumericalError: rank-deficient sketch, failed factorization or a
//     non-finite result
//   - StorageError: missing or malformed persisted artifacts
//
// Use errors.Is with ErrConfiguration, ErrNumerical or ErrStorage to classify
// an error, or errors.As to inspect the typed value.
package model

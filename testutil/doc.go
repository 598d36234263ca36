// Package testutil provides testing utilities for randls.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG, synthetic least-squares problems with a known
// solution, and helpers for writing row data in the text source format.
//
// # Synthetic Problems
//
//	rng := testutil.NewRNG(42)
//	prob := rng.Problem(1000, 10, 0.1)  // [A|b], b = A·x + 0.1·e
//	src := rowmatrix.FromRows(prob.Rows, 8)
package testutil

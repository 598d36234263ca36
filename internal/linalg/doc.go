// Package linalg holds the dense and iterative solvers.
//
// Sketched matrices are small (rows×(n+1)) and handled with gonum/mat on a
// single goroutine. LSQR runs against the full distributed matrix through the
// Operator interface and only keeps n-vectors and partitioned m-vectors.
//
// A Factor carries the preconditioner N = V·Σ⁻¹ of the sketched A together
// with the sketch's own estimate X0. LSQR solves
//
//	min ‖A·N·y − (b − A·X0)‖,  x = X0 + N·y
//
// which, for a good sketch, converges in a number of steps independent of the
// conditioning of A.
package linalg

// Package sketch reduces the augmented matrix [A|b] to a small dense matrix
// by random projection or leverage-score sampling.
//
// Every projection family is a pure function of (matrix, size, seed). Each
// partition draws from its own PCG stream derived from (seed, partition), so
// a fixed seed gives the same sketch regardless of scheduling, and partial
// results are summed in partition order.
package sketch

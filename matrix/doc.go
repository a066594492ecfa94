// SPDX-License-Identifier: MIT

// Package matrix provides the dense linear-algebra kernels used by the
// DQMC engine.
//
// The matrix package provides:
//
//   - Dense, a row-major float64 matrix with safe (error-returning) accessors
//     and a finite-only numeric policy.
//   - Elementwise and product kernels (Add, Mul, Transpose),
//     diagonal scaling (ScaleRows, ScaleCols) and the in-place rank-k update
//     used to flush deferred Sherman–Morrison corrections (RankUpdate).
//   - Factorizations: partially pivoted LU (solve, determinant sign),
//     column-pivoted Householder QR, and the Jacobi symmetric eigensolver.
//
// Every kernel allocates its result, never mutates its inputs (except the
// documented in-place kernels) and iterates in a fixed order so identical
// inputs give bit-identical outputs.
package matrix

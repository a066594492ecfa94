// SPDX-License-Identifier: MIT

// Package matrix: numeric policy defaults and tolerances.
// This file is the single source of truth for the constants every kernel
// consults; there is no global mutable state.
package matrix

// Numeric policy.
const (
	// DefaultEpsilon defines the non-negative tolerance used by structural checks
	// (symmetry of hopping matrices).
	DefaultEpsilon = 1e-9

	// DefaultValidateNaNInf toggles strict finite-value validation on Set.
	DefaultValidateNaNInf = true

	// DefaultEigenTol is the off-diagonal threshold used by EigenSym.
	DefaultEigenTol = 1e-12

	// DefaultEigenSweeps bounds Jacobi rotations per EigenSym call as
	// DefaultEigenSweeps * n * n.
	DefaultEigenSweeps = 64
)

// Accumulation identities shared by kernels.
const (
	// NormZero is the additive identity for norm and accumulation operations.
	NormZero = 0.0

	// ZeroSum is the initial sum value for forward/backward substitution and similar.
	ZeroSum = 0.0

	// ZeroPivot is the sentinel for detecting a zero pivot in LU routines.
	ZeroPivot = 0.0
)

// SPDX-License-Identifier: MIT
// Package matrix: public API facades.
//
// Purpose:
//   - Provide thin, well-documented entry points for common tasks across the package.
//   - Avoid logic duplication; each facade delegates to a canonical kernel.
//
// AI-Hints:
//   - Use NewIdentity and AddIdentity to build UDT seeds and I + G forms.
//   - Use MaxAbsDiff to compare an incrementally maintained Green's function with a recompute.

package matrix

import (
	"errors"
	"math"
)

// NewIdentity returns I_n (n×n identity; ones on the diagonal, zeros elsewhere).
// Complexity: O(n^2) zeroing (constructor) + O(n) writes on the diagonal.
func NewIdentity(n int) (*Dense, error) {
	id, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ { // fixed i order guarantees reproducibility
		id.data[i*n+i] = 1.0
	}

	return id, nil
}

// AddIdentity returns alpha·I + m for a square m.
// Complexity: O(n²).
func AddIdentity(m Matrix, alpha float64) (*Dense, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf(opAdd, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opAdd, err)
	}
	out := d.Copy()
	for i := 0; i < out.r; i++ {
		out.data[i*out.c+i] += alpha
	}

	return out, nil
}

// EigenSym runs Eigen with DefaultEigenTol and a size-aware rotation cap.
func EigenSym(m Matrix) ([]float64, *Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	n := m.Rows()

	return Eigen(m, DefaultEigenTol, DefaultEigenSweeps*n*n+1)
}

// MaxAbsDiff returns max_{i,j} |a[i,j] - b[i,j]| for identical shapes.
// A NaN anywhere yields +Inf so that comparisons against a threshold fail closed.
// Time: O(r*c). Space: O(1).
func MaxAbsDiff(a, b Matrix) (float64, error) {
	if err := ValidateBinarySameShape(a, b); err != nil {
		return 0, matrixErrorf("MaxAbsDiff", err)
	}
	da, err := asDense(a)
	if err != nil {
		return 0, err
	}
	db, err := asDense(b)
	if err != nil {
		return 0, err
	}
	maxDiff := NormZero
	for idx := range da.data {
		d := math.Abs(da.data[idx] - db.data[idx])
		if math.IsNaN(d) {
			return math.Inf(1), nil
		}
		if d > maxDiff {
			maxDiff = d
		}
	}

	return maxDiff, nil
}

// isSingular reports whether err carries ErrSingular.
func isSingular(err error) bool { return errors.Is(err, ErrSingular) }

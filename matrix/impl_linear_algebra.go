// SPDX-License-Identifier: MIT
// Package matrix provides universal operations on any Matrix implementation:
// element-wise addition, multiplication, transpose, diagonal row/column
// scaling, the in-place rank-k update and the Jacobi
// symmetric eigensolver. All functions perform strict fail-fast validation
// and return clear errors on dimension mismatches.
//
// Purpose:
//   - Declare canonical linear-algebra kernels used by the propagator, the
//     Green's-function state and the stabilized recompute.
//   - Define operation tags for deterministic error reporting.
//
// Notes:
//   - Non-*Dense operands are materialized once through asDense; inner loops
//     always run on flat row-major buffers.
//   - Factorizations (LU, pivoted QR) live in impl_factorizations.go.

package matrix

import (
	"fmt"
	"math"
)

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opAdd        = "Add"
	opMul        = "Mul"
	opTranspose  = "Transpose"
	opScaleRows  = "ScaleRows"
	opScaleCols  = "ScaleCols"
	opRankUpdate = "RankUpdate"
	opEigen      = "Eigen"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// The wrapper keeps a stable "Op: underlying" shape for uniform reporting across kernels.
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
//
// Complexity:
//   - Time O(1), Space O(1).
//
// AI-Hints:
//   - Always gate calls with `if err != nil { return nil, matrixErrorf(tag, err) }`.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Add computes the element-wise sum C = A + B and returns a fresh Dense result.
// Operands are not mutated.
//
// Errors:
//   - ErrNilMatrix (nil input), ErrDimensionMismatch (shape mismatch).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func Add(a, b Matrix) (*Dense, error) {
	if err := ValidateBinarySameShape(a, b); err != nil {
		return nil, matrixErrorf(opAdd, err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opAdd, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opAdd, err)
	}
	res := da.Copy()
	for idx := range res.data { // deterministic 0..n-1
		res.data[idx] += db.data[idx]
	}

	return res, nil
}

// Mul performs standard matrix multiplication C = A × B (no aliasing).
// Implementation:
//   - Stage 1: Validate A,B (not nil) and inner dimensions (A.Cols == B.Rows).
//   - Stage 2: i→k→j loop over row-major strides, skipping zero A[i,k].
//
// Inputs:
//   - A: left matrix with shape (r × n).
//   - B: right matrix with shape (n × c).
//
// Returns:
//   - *Dense C with shape (r × c).
//
// Errors:
//   - ErrNilMatrix (nil input), ErrDimensionMismatch (inner mismatch).
//
// Determinism:
//   - Fixed i→k→j order.
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
//
// AI-Hints:
//   - The interaction diagonal of a propagator is cheaper through ScaleRows than through Mul.
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	res, err := NewDense(da.r, db.c)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	var (
		i, j, k                            int
		av                                 float64
		rowOffsetA, rowOffsetB, rowOffsetR int
	)
	// da.data layout: i*aCols + k ; db.data layout: k*bCols + j
	for i = 0; i < da.r; i++ {
		rowOffsetA = i * da.c
		rowOffsetR = i * db.c
		for k = 0; k < da.c; k++ {
			av = da.data[rowOffsetA+k]
			if av == 0 {
				continue // skip zero for performance
			}
			rowOffsetB = k * db.c
			for j = 0; j < db.c; j++ {
				res.data[rowOffsetR+j] += av * db.data[rowOffsetB+j]
			}
		}
	}

	return res, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
//
// Errors:
//   - ErrNilMatrix.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	res, err := NewDense(d.c, d.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j int
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			res.data[j*d.r+i] = d.data[i*d.c+j]
		}
	}

	return res, nil
}

// ScaleRows returns diag(d)·m, i.e. row i multiplied by d[i].
// MAIN DESCRIPTION:
//   - Left multiplication by a diagonal matrix without forming it.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (len(d) != Rows).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
//
// AI-Hints:
//   - Slice propagators B = diag(exp(V))·E are built with one ScaleRows call.
func ScaleRows(d []float64, m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScaleRows, err)
	}
	if err := ValidateVecLen(d, m.Rows()); err != nil {
		return nil, matrixErrorf(opScaleRows, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opScaleRows, err)
	}
	res := src.Copy()
	var i, j, base int
	for i = 0; i < res.r; i++ {
		base = i * res.c
		for j = 0; j < res.c; j++ {
			res.data[base+j] *= d[i]
		}
	}

	return res, nil
}

// ScaleCols returns m·diag(d), i.e. column j multiplied by d[j].
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (len(d) != Cols).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func ScaleCols(m Matrix, d []float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScaleCols, err)
	}
	if err := ValidateVecLen(d, m.Cols()); err != nil {
		return nil, matrixErrorf(opScaleCols, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opScaleCols, err)
	}
	res := src.Copy()
	var i, j, base int
	for i = 0; i < res.r; i++ {
		base = i * res.c
		for j = 0; j < res.c; j++ {
			res.data[base+j] *= d[j]
		}
	}

	return res, nil
}

// RankUpdate applies g += U[:, :k] · W[:, :k]ᵀ in place.
// MAIN DESCRIPTION:
//   - One rank-k update built from the first k columns of two n×B buffers.
//
// Implementation:
//   - Stage 1: validate shapes (g is n×n; U, W are n×B with 0 ≤ k ≤ B).
//   - Stage 2: for each (i,j) accumulate Σ_c U[i,c]·W[j,c] in fixed c order and add to g[i,j].
//
// Behavior highlights:
//   - k == 0 is a no-op.
//   - The result is checked against the numeric policy of g.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch, ErrOutOfRange (k outside [0,B]), ErrNaNInf.
//
// Complexity:
//   - Time O(n²·k), Space O(1).
func RankUpdate(g, u, w *Dense, k int) error {
	if g == nil || u == nil || w == nil {
		return matrixErrorf(opRankUpdate, ErrNilMatrix)
	}
	if g.r != g.c || u.r != g.r || w.r != g.r || u.c != w.c {
		return matrixErrorf(opRankUpdate, ErrDimensionMismatch)
	}
	if k < 0 || k > u.c {
		return matrixErrorf(opRankUpdate, ErrOutOfRange)
	}
	if k == 0 {
		return nil
	}

	var (
		i, j, c       int
		n, b          = g.r, u.c
		sum           float64
		uBase, wBase  int
		gBase         int
		nonFiniteSeen bool
	)
	for i = 0; i < n; i++ {
		uBase = i * b
		gBase = i * n
		for j = 0; j < n; j++ {
			wBase = j * b
			sum = ZeroSum
			for c = 0; c < k; c++ {
				sum += u.data[uBase+c] * w.data[wBase+c]
			}
			g.data[gBase+j] += sum
			if math.IsNaN(g.data[gBase+j]) || math.IsInf(g.data[gBase+j], 0) {
				nonFiniteSeen = true
			}
		}
	}
	if g.validateNaNInf && nonFiniteSeen {
		return matrixErrorf(opRankUpdate, ErrNaNInf)
	}

	return nil
}

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix via Jacobi rotations.
// Implementation:
//   - Stage 1: Validate symmetric square input within tol.
//   - Stage 2: Repeatedly pick (p,q) with the largest |A[p,q]| in i→j order and apply a Jacobi rotation.
//   - Stage 3: Accumulate rotations into Q; eigenvalues are the final diagonal.
//
// Inputs:
//   - m: symmetric Matrix (within tol); n := m.Rows().
//   - tol: convergence threshold (typ. 1e-9..1e-12 for float64).
//   - maxIter: safety cap on rotations.
//
// Returns:
//   - []float64: eigenvalues (diagonal of the rotated matrix), unsorted.
//   - *Dense: Q whose columns are eigenvectors, A = Q·diag(λ)·Qᵀ.
//
// Errors:
//   - ErrDimensionMismatch (non-square), ErrAsymmetry (not symmetric within tol),
//     ErrMatrixEigenFailed (max off-diagonal ≥ tol after maxIter).
//
// Determinism:
//   - Fixed i→j pivot search and fixed update order produce stable results.
//
// Complexity:
//   - Time O(maxIter * n), plus O(n²) per pivot scan; Space O(n^2).
//
// Notes:
//   - If |A[p,q]| ≤ tol, the rotation is skipped via (c=1,s=0) to avoid numerical blow-ups.
//
// AI-Hints:
//   - Hopping matrices are exactly symmetric; EigenSym picks a size-aware rotation cap.
func Eigen(m Matrix, tol float64, maxIter int) ([]float64, *Dense, error) {
	if err := ValidateSymmetric(m, tol); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	n := src.r
	a := src.Copy() // working copy; the input is never mutated
	q, err := NewIdentity(n)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}

	var (
		iter, i, j, base   int
		p, qq              int     // current pivot indices
		maxOff, off        float64 // current max |A[p,q]|
		app, aqq, apq      float64 // pivot block
		aip, aiq, qip, qiq float64 // temporaries for A[i,p], A[i,q] and Q[i,p], Q[i,q]
		newIP, newIQ       float64 // updated values for A[i,p] and A[i,q]
		theta, t, c, s     float64 // rotation parameters
	)
	for iter = 0; iter < maxIter; iter++ {
		// J.1: Find pivot (p,q) maximizing |A[p,q]|
		maxOff = NormZero
		for i = 0; i < n; i++ {
			base = i * n
			for j = i + 1; j < n; j++ {
				off = math.Abs(a.data[base+j])
				if off > maxOff {
					maxOff, p, qq = off, i, j
				}
			}
		}
		// J.2: Converged.
		if maxOff < tol {
			break
		}

		// J.3: Rotation parameters from A[p,p], A[q,q], A[p,q]
		app = a.data[p*n+p]
		aqq = a.data[qq*n+qq]
		apq = a.data[p*n+qq]
		if math.Abs(apq) <= tol {
			continue
		}
		theta = (aqq - app) / (2 * apq)
		t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c = 1.0 / math.Sqrt(t*t+1)
		s = t * c

		// J.4: Apply rotation to A (symmetric pairs updated together)
		for i = 0; i < n; i++ {
			if i == p || i == qq {
				continue
			}
			aip = a.data[i*n+p]
			aiq = a.data[i*n+qq]
			newIP = c*aip - s*aiq
			newIQ = s*aip + c*aiq
			a.data[i*n+p], a.data[p*n+i] = newIP, newIP
			a.data[i*n+qq], a.data[qq*n+i] = newIQ, newIQ
		}
		a.data[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
		a.data[qq*n+qq] = s*s*app + 2*c*s*apq + c*c*aqq
		a.data[p*n+qq], a.data[qq*n+p] = 0, 0

		// J.5: Accumulate rotation into Q
		for i = 0; i < n; i++ {
			qip = q.data[i*n+p]
			qiq = q.data[i*n+qq]
			q.data[i*n+p] = c*qip - s*qiq
			q.data[i*n+qq] = s*qip + c*qiq
		}
	}

	// Final convergence check.
	maxOff = NormZero
	for i = 0; i < n; i++ {
		base = i * n
		for j = i + 1; j < n; j++ {
			if off = math.Abs(a.data[base+j]); off > maxOff {
				maxOff = off
			}
		}
	}
	if maxOff >= tol {
		return nil, nil, matrixErrorf(opEigen, ErrMatrixEigenFailed)
	}

	return a.Diag(), q, nil
}

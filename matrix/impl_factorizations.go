// SPDX-License-Identifier: MIT

// Package matrix - factorizations used by the stabilized Green's-function recompute.
//
// Purpose:
//   - LU with partial (row) pivoting: solve, determinant sign.
//   - Householder QR with column pivoting: A·P = Q·R with |R[0,0]| ≥ |R[1,1]| ≥ ...,
//     which is the scale-separating step of a U·D·T decomposition.
//
// Determinism:
//   - Pivot ties resolve to the lowest index; loop orders are fixed.
//
// AI-Hints:
//   - Factor once with LU and reuse Solve for several right-hand sides; Solve(I) yields the inverse.
//   - Column-pivoted QR orders the diagonal of R by magnitude, so D = |diag R| comes out graded.

package matrix

import (
	"fmt"
	"math"
)

const (
	opLU      = "LU"
	opSolve   = "Solve"
	opQRPivot = "QRPivot"
)

// LUFactors holds P·A = L·U in compact form.
//   - lu stores L strictly below the diagonal (unit diagonal implied) and U on/above it.
//   - piv[i] is the original row placed at row i.
//   - sign is the parity (±1) of the row permutation.
type LUFactors struct {
	lu   *Dense
	piv  []int
	sign float64
}

// LU factors a square matrix with partial pivoting (Doolittle, row interchanges).
// MAIN DESCRIPTION:
//   - Computes P·A = L·U choosing at step k the row with the largest |A[i,k]|, i ≥ k.
//
// Implementation:
//   - Stage 1: validate non-nil, square, finite.
//   - Stage 2: for k = 0..n-1 pick pivot, swap rows, eliminate below the pivot.
//
// Behavior highlights:
//   - An exactly zero pivot column returns ErrSingular; tiny pivots are accepted
//     and the caller decides (e.g. via the determinant sign or the condition of the result).
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch, ErrNaNInf, ErrSingular.
//
// Complexity:
//   - Time O(n³), Space O(n²).
func LU(m Matrix) (*LUFactors, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf(opLU, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opLU, err)
	}
	if !src.IsFinite() {
		return nil, matrixErrorf(opLU, ErrNaNInf)
	}
	n := src.r
	a := src.Copy()
	piv := make([]int, n)
	for i := range piv {
		piv[i] = i
	}
	sign := 1.0

	var (
		i, j, k, p int
		maxAbs, v  float64
		pivot, f   float64
	)
	for k = 0; k < n; k++ {
		// Stage 2a: pivot search in column k.
		p, maxAbs = k, math.Abs(a.data[k*n+k])
		for i = k + 1; i < n; i++ {
			if v = math.Abs(a.data[i*n+k]); v > maxAbs {
				p, maxAbs = i, v
			}
		}
		if maxAbs == ZeroPivot {
			return nil, matrixErrorf(opLU, fmt.Errorf("column %d: %w", k, ErrSingular))
		}
		// Stage 2b: row interchange.
		if p != k {
			for j = 0; j < n; j++ {
				a.data[k*n+j], a.data[p*n+j] = a.data[p*n+j], a.data[k*n+j]
			}
			piv[k], piv[p] = piv[p], piv[k]
			sign = -sign
		}
		// Stage 2c: elimination.
		pivot = a.data[k*n+k]
		for i = k + 1; i < n; i++ {
			f = a.data[i*n+k] / pivot
			a.data[i*n+k] = f
			if f == 0 {
				continue
			}
			for j = k + 1; j < n; j++ {
				a.data[i*n+j] -= f * a.data[k*n+j]
			}
		}
	}

	return &LUFactors{lu: a, piv: piv, sign: sign}, nil
}

// Solve returns X with A·X = B for the factored A.
// Errors: ErrNilMatrix, ErrDimensionMismatch (B.Rows != n), ErrNaNInf (non-finite solution).
// Complexity: O(n²·c) for B with c columns.
func (f *LUFactors) Solve(b Matrix) (*Dense, error) {
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	n := f.lu.r
	if b.Rows() != n {
		return nil, matrixErrorf(opSolve, ErrDimensionMismatch)
	}
	src, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	cols := src.c
	x, err := NewDense(n, cols)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	// Apply the row permutation: X = P·B.
	var i, j, k int
	for i = 0; i < n; i++ {
		copy(x.data[i*cols:(i+1)*cols], src.data[f.piv[i]*cols:(f.piv[i]+1)*cols])
	}
	lu := f.lu.data
	// Forward substitution with unit-lower L.
	for i = 1; i < n; i++ {
		for k = 0; k < i; k++ {
			l := lu[i*n+k]
			if l == 0 {
				continue
			}
			for j = 0; j < cols; j++ {
				x.data[i*cols+j] -= l * x.data[k*cols+j]
			}
		}
	}
	// Backward substitution with U.
	for i = n - 1; i >= 0; i-- {
		for k = i + 1; k < n; k++ {
			u := lu[i*n+k]
			if u == 0 {
				continue
			}
			for j = 0; j < cols; j++ {
				x.data[i*cols+j] -= u * x.data[k*cols+j]
			}
		}
		d := lu[i*n+i]
		for j = 0; j < cols; j++ {
			x.data[i*cols+j] /= d
		}
	}
	if !x.IsFinite() {
		return nil, matrixErrorf(opSolve, ErrNaNInf)
	}

	return x, nil
}

// DetSign returns the sign (+1, -1) of det(A).
// Complexity: O(n).
func (f *LUFactors) DetSign() float64 {
	s := f.sign
	n := f.lu.r
	for i := 0; i < n; i++ {
		if f.lu.data[i*n+i] < 0 {
			s = -s
		}
	}

	return s
}

// DetSign returns sgn det(m), or 0 when m is exactly singular.
// Errors: validation failures and ErrNaNInf; ErrSingular is folded into a 0 result.
// Complexity: O(n³).
func DetSign(m Matrix) (float64, error) {
	f, err := LU(m)
	if err != nil {
		if isSingular(err) {
			return 0, nil
		}

		return 0, err
	}

	return f.DetSign(), nil
}

// QRP is the column-pivoted QR factorization A·P = Q·R.
//   - Q is orthogonal (n×n).
//   - R is upper triangular with non-negative, non-increasing |diagonal|.
//   - Perm[j] is the column of A stored at column j of A·P.
type QRP struct {
	Q    *Dense
	R    *Dense
	Perm []int
}

// QRPivot computes a Householder QR factorization with column pivoting.
// MAIN DESCRIPTION:
//   - A·P = Q·R where at step k the remaining column with the largest norm is moved to position k.
//
// Implementation:
//   - Stage 1: validate square, non-nil, finite.
//   - Stage 2: for each k, choose the pivot column from fresh sub-column norms, swap,
//     build the Householder reflector for A[k:,k] and apply it to the trailing block.
//   - Stage 3: accumulate Q = H_0·H_1·…·H_{n-1} by back-applying reflectors to I.
//   - Stage 4: normalize signs so that diag(R) ≥ 0 (flip row of R, column of Q).
//
// Behavior highlights:
//   - Diagonal of R is graded: R[0,0] ≥ R[1,1] ≥ … ≥ 0 (up to rounding).
//   - Zero columns produce a zero diagonal entry without error; the caller decides.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch, ErrNaNInf.
//
// Determinism:
//   - Ties in the pivot search pick the lowest column index.
//
// Complexity:
//   - Time O(n³), Space O(n²).
//
// AI-Hints:
//   - For a UDT step: D = diag(R), T' = D^{-1}·R·Pᵀ; see udt.Decomposition.
func QRPivot(m Matrix) (*QRP, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf(opQRPivot, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opQRPivot, err)
	}
	if !src.IsFinite() {
		return nil, matrixErrorf(opQRPivot, ErrNaNInf)
	}
	n := src.r
	a := src.Copy()
	perm := make([]int, n)
	for j := range perm {
		perm[j] = j
	}
	vs := make([][]float64, n) // Householder vectors (length n-k), nil when H_k = I
	betas := make([]float64, n)

	var (
		i, j, k, p    int
		norm, best, v float64
		alpha, beta   float64
		dot           float64
	)
	for k = 0; k < n; k++ {
		// Stage 2a: pivot on the largest trailing sub-column norm.
		p, best = k, -1.0
		for j = k; j < n; j++ {
			norm = NormZero
			for i = k; i < n; i++ {
				v = a.data[i*n+j]
				norm += v * v
			}
			if norm > best {
				p, best = j, norm
			}
		}
		if p != k {
			for i = 0; i < n; i++ {
				a.data[i*n+k], a.data[i*n+p] = a.data[i*n+p], a.data[i*n+k]
			}
			perm[k], perm[p] = perm[p], perm[k]
		}

		// Stage 2b: reflector for x = A[k:,k].
		norm = math.Sqrt(best)
		if norm == NormZero {
			continue // remaining block is zero
		}
		alpha = -math.Copysign(norm, a.data[k*n+k])
		vk := make([]float64, n-k)
		for i = k; i < n; i++ {
			vk[i-k] = a.data[i*n+k]
		}
		vk[0] -= alpha
		beta = NormZero
		for _, x := range vk {
			beta += x * x
		}
		if beta == NormZero {
			continue
		}
		vs[k], betas[k] = vk, 2/beta

		// Stage 2c: apply H_k = I - (2/βv)·v·vᵀ to columns k..n-1.
		for j = k; j < n; j++ {
			dot = ZeroSum
			for i = k; i < n; i++ {
				dot += vk[i-k] * a.data[i*n+j]
			}
			dot *= betas[k]
			for i = k; i < n; i++ {
				a.data[i*n+j] -= dot * vk[i-k]
			}
		}
		// Exact zeros below the diagonal.
		a.data[k*n+k] = alpha
		for i = k + 1; i < n; i++ {
			a.data[i*n+k] = 0
		}
	}

	// Stage 3: Q = H_0·(H_1·(…·H_{n-1}·I)).
	q, err := NewIdentity(n)
	if err != nil {
		return nil, matrixErrorf(opQRPivot, err)
	}
	for k = n - 1; k >= 0; k-- {
		vk := vs[k]
		if vk == nil {
			continue
		}
		for j = 0; j < n; j++ {
			dot = ZeroSum
			for i = k; i < n; i++ {
				dot += vk[i-k] * q.data[i*n+j]
			}
			dot *= betas[k]
			for i = k; i < n; i++ {
				q.data[i*n+j] -= dot * vk[i-k]
			}
		}
	}

	// Stage 4: non-negative diagonal.
	for k = 0; k < n; k++ {
		if a.data[k*n+k] >= 0 {
			continue
		}
		for j = k; j < n; j++ {
			a.data[k*n+j] = -a.data[k*n+j]
		}
		for i = 0; i < n; i++ {
			q.data[i*n+k] = -q.data[i*n+k]
		}
	}

	return &QRP{Q: q, R: a, Perm: perm}, nil
}

// RPt returns R·Pᵀ, the triangular factor with the column permutation undone.
// Column Perm[j] of the result is column j of R.
// Complexity: O(n²).
func (f *QRP) RPt() *Dense {
	n := f.R.r
	out := &Dense{r: n, c: n, data: make([]float64, n*n), validateNaNInf: f.R.validateNaNInf}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.data[i*n+f.Perm[j]] = f.R.data[i*n+j]
		}
	}

	return out
}

// SPDX-License-Identifier: MIT

// Package udt rebuilds the equal-time Green's function from the full chain
// of slice propagators without losing the small scales of the product.
//
// A product A = B_k·…·B_1 is carried as A = U·diag(D)·T where U is
// orthogonal, D is a graded positive scale vector and T is well conditioned.
// Every orthoEvery multiplications the partial product is refactored by a
// column-pivoted Householder QR, which keeps the exponentially separated
// scales in D instead of mixing them into U and T.
//
// The final inverse (I + U·D·T)⁻¹ splits D into Db = max(D,1) and
// Ds = min(D,1) so that no entry larger than one is ever added to an
// entry smaller than one:
//
//	(I + U·D·T)⁻¹ = (Db⁻¹·Uᵀ + Ds·T)⁻¹ · Db⁻¹·Uᵀ
package udt

import (
	"fmt"
	"math"

	"github.com/katalvlaran/dqmc/matrix"
)

const (
	stageLeftMul  = "udt.LeftMul"
	stageRefactor = "udt.Refactor"
	stageGreen    = "udt.Green"
)

// Decomposition is A = U·diag(D)·T.
// Between refactors U holds the raw left products and is not orthogonal;
// Dirty reports that state.
type Decomposition struct {
	U *matrix.Dense
	D []float64
	T *matrix.Dense

	pending int // left multiplications since the last refactor
}

// Identity returns the n×n decomposition U = I, D = 1, T = I.
// Errors: matrix.ErrInvalidDimensions for n < 1.
func Identity(n int) (*Decomposition, error) {
	u, err := matrix.NewIdentity(n)
	if err != nil {
		return nil, err
	}
	t, err := matrix.NewIdentity(n)
	if err != nil {
		return nil, err
	}
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}

	return &Decomposition{U: u, D: d, T: t}, nil
}

// Sites returns n.
func (d *Decomposition) Sites() int { return len(d.D) }

// Dirty reports whether U carries unfactored products.
func (d *Decomposition) Dirty() bool { return d.pending > 0 }

// LeftMul replaces A by B·A without refactoring (U ← B·U).
// Errors: matrix shape errors, ErrStabilityFault on overflow.
// Complexity: O(n³).
func (d *Decomposition) LeftMul(b matrix.Matrix) error {
	u, err := matrix.Mul(b, d.U)
	if err != nil {
		return fault(stageLeftMul, err)
	}
	if !u.IsFinite() {
		return fmt.Errorf("%s: %w", stageLeftMul, ErrStabilityFault)
	}
	d.U = u
	d.pending++

	return nil
}

// Refactor restores the orthogonal form.
//
// Implementation:
//   - Stage 1: C = U·diag(D).
//   - Stage 2: C·P = Q·R with column pivoting; R has a graded non-negative diagonal.
//   - Stage 3: U' = Q, D' = diag(R), T' = D'⁻¹·R·Pᵀ·T.
//
// Errors: ErrStabilityFault when D' has a zero or the result is not finite.
// Complexity: O(n³).
func (d *Decomposition) Refactor() error {
	c, err := matrix.ScaleCols(d.U, d.D)
	if err != nil {
		return fault(stageRefactor, err)
	}
	qr, err := matrix.QRPivot(c)
	if err != nil {
		return fault(stageRefactor, err)
	}
	diag := qr.R.Diag()
	inv := make([]float64, len(diag))
	for i, v := range diag {
		if v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("%s: scale %d is %g: %w", stageRefactor, i, v, ErrStabilityFault)
		}
		inv[i] = 1 / v
	}
	rt, err := matrix.ScaleRows(inv, qr.RPt())
	if err != nil {
		return fault(stageRefactor, err)
	}
	t, err := matrix.Mul(rt, d.T)
	if err != nil {
		return fault(stageRefactor, err)
	}
	if !t.IsFinite() {
		return fmt.Errorf("%s: %w", stageRefactor, ErrStabilityFault)
	}
	d.U, d.D, d.T = qr.Q, diag, t
	d.pending = 0

	return nil
}

// Product returns U·diag(D)·T. Only meaningful for well-scaled products.
func (d *Decomposition) Product() (*matrix.Dense, error) {
	ud, err := matrix.ScaleCols(d.U, d.D)
	if err != nil {
		return nil, err
	}

	return matrix.Mul(ud, d.T)
}

// Green returns (I + U·D·T)⁻¹, refactoring first when Dirty.
//
// Implementation:
//   - Stage 1: Db = max(D,1), Ds = min(D,1).
//   - Stage 2: M = Db⁻¹·Uᵀ + Ds·T and R = Db⁻¹·Uᵀ.
//   - Stage 3: G = M⁻¹·R via one LU factorization of M.
//
// Errors: ErrStabilityFault when M is singular or G is not finite.
// Complexity: O(n³).
func (d *Decomposition) Green() (*matrix.Dense, error) {
	if d.Dirty() {
		if err := d.Refactor(); err != nil {
			return nil, err
		}
	}
	n := len(d.D)
	dbInv := make([]float64, n)
	ds := make([]float64, n)
	for i, v := range d.D {
		if v > 1 {
			dbInv[i], ds[i] = 1/v, 1
		} else {
			dbInv[i], ds[i] = 1, v
		}
	}
	ut, err := matrix.Transpose(d.U)
	if err != nil {
		return nil, fault(stageGreen, err)
	}
	rhs, err := matrix.ScaleRows(dbInv, ut)
	if err != nil {
		return nil, fault(stageGreen, err)
	}
	dst, err := matrix.ScaleRows(ds, d.T)
	if err != nil {
		return nil, fault(stageGreen, err)
	}
	m, err := matrix.Add(rhs, dst)
	if err != nil {
		return nil, fault(stageGreen, err)
	}
	lu, err := matrix.LU(m)
	if err != nil {
		return nil, fault(stageGreen, err)
	}
	g, err := lu.Solve(rhs)
	if err != nil {
		return nil, fault(stageGreen, err)
	}
	if !g.IsFinite() {
		return nil, fmt.Errorf("%s: %w", stageGreen, ErrStabilityFault)
	}

	return g, nil
}

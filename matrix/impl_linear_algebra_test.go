// Package matrix_test contains unit tests for the product, scaling, rank-update
// and eigen kernels.
package matrix_test

import (
	"testing"

	"github.com/katalvlaran/dqmc/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustRows builds a Dense from a literal or fails the test.
func mustRows(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

// requireClose fails when two matrices differ by more than atol anywhere.
func requireClose(t *testing.T, want, got matrix.Matrix, atol float64) {
	t.Helper()
	diff, err := matrix.MaxAbsDiff(want, got)
	require.NoError(t, err)
	require.LessOrEqualf(t, diff, atol, "max |Δ| = %g", diff)
}

// TestMulTranspose verifies a rectangular product and its transpose identity (AB)ᵀ = BᵀAᵀ.
func TestMulTranspose(t *testing.T) {
	a := mustRows(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	b := mustRows(t, [][]float64{{7, 8}, {9, 10}, {11, 12}})

	c, err := matrix.Mul(a, b)
	require.NoError(t, err)
	requireClose(t, mustRows(t, [][]float64{{58, 64}, {139, 154}}), c, 0)

	ct, err := matrix.Transpose(c)
	require.NoError(t, err)
	at, _ := matrix.Transpose(a)
	bt, _ := matrix.Transpose(b)
	btat, err := matrix.Mul(bt, at)
	require.NoError(t, err)
	requireClose(t, ct, btat, 0)

	_, err = matrix.Mul(a, a) // 2x3 · 2x3
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestAddAndIdentity covers the elementwise sum and AddIdentity.
func TestAddAndIdentity(t *testing.T) {
	a := mustRows(t, [][]float64{{1, 2}, {3, 4}})
	b := mustRows(t, [][]float64{{4, 3}, {2, 1}})

	s, err := matrix.Add(a, b)
	require.NoError(t, err)
	requireClose(t, mustRows(t, [][]float64{{5, 5}, {5, 5}}), s, 0)
	requireClose(t, mustRows(t, [][]float64{{1, 2}, {3, 4}}), a, 0) // operands untouched

	ai, err := matrix.AddIdentity(a, 1)
	require.NoError(t, err)
	requireClose(t, mustRows(t, [][]float64{{2, 2}, {3, 5}}), ai, 0)

	_, err = matrix.Add(a, mustRows(t, [][]float64{{1, 2, 3}}))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestScaleRowsCols checks diag(d)·A and A·diag(d) against explicit products.
func TestScaleRowsCols(t *testing.T) {
	a := mustRows(t, [][]float64{{1, 2}, {3, 4}})
	d := []float64{2, -1}
	diag := mustRows(t, [][]float64{{2, 0}, {0, -1}})

	left, err := matrix.ScaleRows(d, a)
	require.NoError(t, err)
	want, _ := matrix.Mul(diag, a)
	requireClose(t, want, left, 0)

	right, err := matrix.ScaleCols(a, d)
	require.NoError(t, err)
	want, _ = matrix.Mul(a, diag)
	requireClose(t, want, right, 0)

	_, err = matrix.ScaleRows([]float64{1}, a)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestRankUpdate compares the in-place rank-k update against summed outer products.
func TestRankUpdate(t *testing.T) {
	g := mustRows(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	u := mustRows(t, [][]float64{{1, 2, 9}, {3, 4, 9}, {5, 6, 9}}) // third column is beyond k
	w := mustRows(t, [][]float64{{1, 0, 9}, {0, 1, 9}, {1, 1, 9}})

	require.NoError(t, matrix.RankUpdate(g, u, w, 2))

	// expected = I + u0 w0ᵀ + u1 w1ᵀ
	want := mustRows(t, [][]float64{
		{1 + 1, 2, 1 + 2},
		{3, 1 + 4, 3 + 4},
		{5, 6, 1 + 5 + 6},
	})
	requireClose(t, want, g, 1e-15)

	require.NoError(t, matrix.RankUpdate(g, u, w, 0)) // no-op
	requireClose(t, want, g, 0)
	require.ErrorIs(t, matrix.RankUpdate(g, u, w, 4), matrix.ErrOutOfRange)
}

// TestEigenReconstruct checks A = Q·diag(λ)·Qᵀ and QᵀQ = I for a symmetric matrix.
func TestEigenReconstruct(t *testing.T) {
	a := mustRows(t, [][]float64{
		{2, -1, 0, -1},
		{-1, 2, -1, 0},
		{0, -1, 2, -1},
		{-1, 0, -1, 2},
	})
	vals, q, err := matrix.EigenSym(a)
	require.NoError(t, err)
	require.Len(t, vals, 4)

	scaled, err := matrix.ScaleCols(q, vals)
	require.NoError(t, err)
	qt, _ := matrix.Transpose(q)
	rec, err := matrix.Mul(scaled, qt)
	require.NoError(t, err)
	requireClose(t, a, rec, 1e-10)

	qtq, _ := matrix.Mul(qt, q)
	id, _ := matrix.NewIdentity(4)
	requireClose(t, id, qtq, 1e-10)

	// Ring Laplacian of 4 sites has spectrum {0, 2, 2, 4}.
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	assert.InDelta(t, 8.0, sum, 1e-10)

	_, _, err = matrix.EigenSym(mustRows(t, [][]float64{{0, 1}, {2, 0}}))
	require.ErrorIs(t, err, matrix.ErrAsymmetry)
}

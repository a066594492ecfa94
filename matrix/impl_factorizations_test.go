// Package matrix_test contains unit tests for the LU and pivoted QR factorizations.
package matrix_test

import (
	"testing"

	"github.com/katalvlaran/dqmc/matrix"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestLUPivotingAndInverse uses a matrix with a zero leading pivot, which needs row interchange.
func TestLUPivotingAndInverse(t *testing.T) {
	a := mustRows(t, [][]float64{
		{0, 2, 1},
		{1, 1, 0},
		{3, 0, 1},
	})
	f, err := matrix.LU(a)
	require.NoError(t, err)
	id, _ := matrix.NewIdentity(3)
	inv, err := f.Solve(id)
	require.NoError(t, err)

	prod, err := matrix.Mul(a, inv)
	require.NoError(t, err)
	requireClose(t, id, prod, 1e-12)

	// Independent reference: gonum.
	var ref mat.Dense
	require.NoError(t, ref.Inverse(mat.NewDense(3, 3, a.Flat())))
	want, err := matrix.NewDenseFrom(3, 3, ref.RawMatrix().Data)
	require.NoError(t, err)
	requireClose(t, want, inv, 1e-12)
}

// TestDetSign checks determinant signs, including the permutation parity and the singular case.
func TestDetSign(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want float64
	}{
		{"identity", [][]float64{{1, 0}, {0, 1}}, 1},
		{"swap", [][]float64{{0, 1}, {1, 0}}, -1},
		{"negative diagonal", [][]float64{{-2, 0}, {0, 3}}, -1},
		{"positive product", [][]float64{{-2, 0}, {0, -3}}, 1},
		{"singular", [][]float64{{1, 2}, {2, 4}}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := matrix.DetSign(mustRows(t, tc.rows))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := matrix.LU(mustRows(t, [][]float64{{1, 2}, {2, 4}}))
	require.ErrorIs(t, err, matrix.ErrSingular)
}

// TestLUSolve checks A·X = B for a multi-column right-hand side.
func TestLUSolve(t *testing.T) {
	a := mustRows(t, [][]float64{{4, 3}, {6, 3}})
	b := mustRows(t, [][]float64{{10, 1}, {12, 0}})

	f, err := matrix.LU(a)
	require.NoError(t, err)
	x, err := f.Solve(b)
	require.NoError(t, err)

	ax, _ := matrix.Mul(a, x)
	requireClose(t, b, ax, 1e-12)
	require.Equal(t, -1.0, f.DetSign()) // det = −6
}

// TestQRPivot verifies orthogonality of Q, reconstruction A = Q·R·Pᵀ and the graded diagonal.
func TestQRPivot(t *testing.T) {
	// Columns with wildly different scales exercise the pivoting order.
	a := mustRows(t, [][]float64{
		{1e-6, 3, 1e4},
		{2e-6, 1, -2e4},
		{1e-6, -1, 5e3},
	})
	f, err := matrix.QRPivot(a)
	require.NoError(t, err)

	qt, _ := matrix.Transpose(f.Q)
	qtq, _ := matrix.Mul(qt, f.Q)
	id, _ := matrix.NewIdentity(3)
	requireClose(t, id, qtq, 1e-12)

	rec, err := matrix.Mul(f.Q, f.RPt())
	require.NoError(t, err)
	requireClose(t, a, rec, 1e-10) // absolute error is set by the 1e4 column

	d := f.R.Diag()
	for i := range d {
		require.GreaterOrEqual(t, d[i], 0.0)
		if i > 0 {
			require.GreaterOrEqual(t, d[i-1], d[i])
		}
	}
	require.Equal(t, 2, f.Perm[0]) // largest column first

	// Strictly lower part is exactly zero.
	for i := 1; i < 3; i++ {
		for j := 0; j < i; j++ {
			v, _ := f.R.At(i, j)
			require.Zero(t, v)
		}
	}
}

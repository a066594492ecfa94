// Package matrix_test contains unit tests for the matrix validators.
package matrix_test

import (
	"errors"
	"testing"

	"github.com/katalvlaran/dqmc/matrix"
	"github.com/stretchr/testify/require"
)

// TestValidateSameShape covers nil inputs, matching and mismatched dimensions.
func TestValidateSameShape(t *testing.T) {
	t.Parallel()

	dense := func(r, c int) matrix.Matrix {
		m, err := matrix.NewDense(r, c)
		require.NoError(t, err)
		return m
	}

	tests := []struct {
		name    string
		a, b    matrix.Matrix
		wantErr error
	}{
		{"first nil", nil, dense(2, 2), matrix.ErrNilMatrix},
		{"second nil", dense(2, 2), nil, matrix.ErrNilMatrix},
		{"equal 2x3", dense(2, 3), dense(2, 3), nil},
		{"row mismatch", dense(2, 3), dense(3, 3), matrix.ErrDimensionMismatch},
		{"col mismatch", dense(2, 3), dense(2, 4), matrix.ErrDimensionMismatch},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := matrix.ValidateBinarySameShape(tc.a, tc.b)
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Truef(t, errors.Is(err, tc.wantErr),
					"expected errors.Is(%v, %v)", err, tc.wantErr)
			}
		})
	}
}

// TestValidateSymmetric covers exact, tolerant and violating inputs.
func TestValidateSymmetric(t *testing.T) {
	t.Parallel()

	sym, _ := matrix.FromRows([][]float64{{0, 1}, {1, 0}})
	near, _ := matrix.FromRows([][]float64{{0, 1}, {1 + 1e-12, 0}})
	asym, _ := matrix.FromRows([][]float64{{0, 1}, {2, 0}})
	rect, _ := matrix.NewDense(2, 3)
	var typedNil *matrix.Dense

	require.NoError(t, matrix.ValidateSymmetric(sym, 0))
	require.NoError(t, matrix.ValidateSymmetric(near, 1e-9))
	require.ErrorIs(t, matrix.ValidateSymmetric(asym, 1e-9), matrix.ErrAsymmetry)
	require.ErrorIs(t, matrix.ValidateSymmetric(rect, 1e-9), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateSymmetric(typedNil, 1e-9), matrix.ErrNilMatrix)
}

// TestValidateMulCompatible checks inner-dimension agreement.
func TestValidateMulCompatible(t *testing.T) {
	a, _ := matrix.NewDense(2, 3)
	b, _ := matrix.NewDense(3, 4)

	require.NoError(t, matrix.ValidateMulCompatible(a, b))
	require.ErrorIs(t, matrix.ValidateMulCompatible(b, a), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateVecLen([]float64{1}, 2), matrix.ErrDimensionMismatch)
}

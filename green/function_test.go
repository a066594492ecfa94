package green_test

import (
	"testing"

	"github.com/katalvlaran/dqmc/green"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/stretchr/testify/require"
)

// TestWrapAndReplaceBookkeeping follows the counters through wraps and a recompute.
func TestWrapAndReplaceBookkeeping(t *testing.T) {
	up, _ := matrix.NewIdentity(2)
	dn, _ := matrix.NewIdentity(2)
	f, err := green.New(up, dn, 4, 3)
	require.NoError(t, err)
	require.Equal(t, 3, f.Slice())
	require.Equal(t, 3, f.LastRecompute())

	double := func(_ lattice.Spin, g *matrix.Dense) (*matrix.Dense, error) { return matrix.ScaleRows([]float64{2, 2}, g) }

	require.NoError(t, f.UpdateRank1(lattice.Up, 0, 0.5))
	require.Equal(t, 1, f.Pending(lattice.Up))
	require.NoError(t, f.Wrap(0, double)) // flushes first
	require.Zero(t, f.Pending(lattice.Up))
	require.NoError(t, f.Wrap(1, double))
	require.Equal(t, 2, f.Wraps())
	require.Equal(t, 1, f.Slice())

	gd, err := f.Matrix(lattice.Down)
	require.NoError(t, err)
	v, _ := gd.At(0, 0)
	require.Equal(t, 4.0, v)

	fresh, _ := matrix.NewIdentity(2)
	fresh2, _ := matrix.NewIdentity(2)
	require.NoError(t, f.Replace(fresh, fresh2, 1))
	require.Zero(t, f.Wraps())
	require.Equal(t, 1, f.LastRecompute())

	require.Equal(t, 1, f.RecordDivergence())
	require.Equal(t, 2, f.RecordDivergence())
	require.Equal(t, 2, f.ErrorRate())

	bad, _ := matrix.NewIdentity(3)
	require.ErrorIs(t, f.Replace(bad, fresh2, 0), matrix.ErrDimensionMismatch)
}

package green_test

import (
	"testing"

	"github.com/katalvlaran/dqmc/green"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/stretchr/testify/require"
)

type update struct {
	site  int
	gamma float64
}

var synthetic = []update{{0, 0.5}, {2, -0.3}, {0, 0.8}}

// naive applies G ← G + γ·G[:,j]·(G[j,:] − e_jᵀ) on a dense copy.
func naive(t *testing.T, g *matrix.Dense, ups []update) *matrix.Dense {
	t.Helper()
	out := g.Copy()
	n := out.Rows()
	for _, u := range ups {
		col, err := out.Col(u.site)
		require.NoError(t, err)
		row, err := out.Row(u.site)
		require.NoError(t, err)
		row[u.site] -= 1
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				v, _ := out.At(a, b)
				require.NoError(t, out.Set(a, b, v+u.gamma*col[a]*row[b]))
			}
		}
	}
	return out
}

// TestBlockedMatchesSequential: three rank-1 updates on a 4×4 identity,
// flushed one at a time versus buffered and flushed once.
func TestBlockedMatchesSequential(t *testing.T) {
	id, err := matrix.NewIdentity(4)
	require.NoError(t, err)

	seq, err := green.NewChannel(id.Copy(), 1) // block 1: every update flushes immediately
	require.NoError(t, err)
	blk, err := green.NewChannel(id.Copy(), 4)
	require.NoError(t, err)

	for _, u := range synthetic {
		require.NoError(t, seq.UpdateRank1(u.site, u.gamma))
		require.Zero(t, seq.Pending())
		require.NoError(t, blk.UpdateRank1(u.site, u.gamma))
	}
	require.Equal(t, 3, blk.Pending())
	require.NoError(t, blk.Flush(true))
	require.Zero(t, blk.Pending())

	a, err := seq.Matrix()
	require.NoError(t, err)
	b, err := blk.Matrix()
	require.NoError(t, err)
	diff, err := matrix.MaxAbsDiff(a, b)
	require.NoError(t, err)
	require.LessOrEqual(t, diff, 1e-10)

	ref := naive(t, id, synthetic)
	diff, err = matrix.MaxAbsDiff(ref, b)
	require.NoError(t, err)
	require.LessOrEqual(t, diff, 1e-10)
}

// TestDiagonalIsBufferAware compares buffered diagonals with the flushed matrix.
func TestDiagonalIsBufferAware(t *testing.T) {
	g, err := matrix.FromRows([][]float64{
		{0.7, 0.1, 0.0},
		{0.1, 0.4, -0.2},
		{0.0, -0.2, 0.5},
	})
	require.NoError(t, err)
	c, err := green.NewChannel(g.Copy(), 8)
	require.NoError(t, err)

	require.NoError(t, c.UpdateRank1(1, 0.9))
	require.NoError(t, c.UpdateRank1(2, -0.4))

	var buffered [3]float64
	for j := range buffered {
		buffered[j], err = c.Diagonal(j)
		require.NoError(t, err)
	}
	_, err = c.Matrix()
	require.ErrorIs(t, err, green.ErrPendingUpdates)

	require.NoError(t, c.Flush(true))
	flushed, err := c.Matrix()
	require.NoError(t, err)
	for j, want := range flushed.Diag() {
		require.InDelta(t, want, buffered[j], 1e-14)
	}

	_, err = c.Diagonal(3)
	require.ErrorIs(t, err, green.ErrSite)
}

// TestAutoFlushAtBlockSize checks that the buffer empties itself at capacity
// and that an unforced flush below capacity is a no-op.
func TestAutoFlushAtBlockSize(t *testing.T) {
	id, _ := matrix.NewIdentity(3)
	c, err := green.NewChannel(id, 2)
	require.NoError(t, err)

	require.NoError(t, c.UpdateRank1(0, 0.1))
	require.NoError(t, c.Flush(false))
	require.Equal(t, 1, c.Pending())
	require.NoError(t, c.UpdateRank1(1, 0.1))
	require.Zero(t, c.Pending())

	_, err = green.NewChannel(id, 0)
	require.ErrorIs(t, err, green.ErrBadBlockSize)
}

// TestFailedFlushKeepsBuffer overflows the rank-k product and checks that
// the corrections stay queued and the stored matrix is untouched.
func TestFailedFlushKeepsBuffer(t *testing.T) {
	g, err := matrix.FromRows([][]float64{
		{1e200, 0},
		{0, 1},
	})
	require.NoError(t, err)
	c, err := green.NewChannel(g, 4)
	require.NoError(t, err)

	// x = y = (1e200, 0): the (0,0) correction is 1e400.
	require.NoError(t, c.UpdateRank1(0, 1))
	for range 2 {
		require.ErrorIs(t, c.Flush(true), matrix.ErrNaNInf)
		require.Equal(t, 1, c.Pending())
	}
	_, err = c.Matrix()
	require.ErrorIs(t, err, green.ErrPendingUpdates)

	d, err := c.Diagonal(1)
	require.NoError(t, err)
	require.Equal(t, 1.0, d)
	v, err := g.At(0, 0)
	require.NoError(t, err)
	require.Equal(t, 1e200, v)
}

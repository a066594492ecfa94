package measure_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/katalvlaran/dqmc/measure"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func chainBuilder(t *testing.T, n int, p propagator.Params) *propagator.Builder {
	t.Helper()
	g, err := lattice.NewChain(n, lattice.DefaultOptions())
	require.NoError(t, err)
	p.Sites = n
	b, err := propagator.New(simctx.Discard(), g, p)
	require.NoError(t, err)
	return b
}

func halfIdentity(t *testing.T, n int) *matrix.Dense {
	t.Helper()
	zero, err := matrix.NewDense(n, n)
	require.NoError(t, err)
	h, err := matrix.AddIdentity(zero, 0.5)
	require.NoError(t, err)
	return h
}

func estimate(t *testing.T, a *measure.Accumulator, o measure.Observable) float64 {
	t.Helper()
	m, _, err := a.Estimate(o)
	require.NoError(t, err)
	return m
}

// TestHalfIdentity evaluates every observable for G = I/2 in both spins.
func TestHalfIdentity(t *testing.T) {
	b := chainBuilder(t, 4, propagator.Params{Beta: 1, Slices: 4, U: 4})
	a, err := measure.New(b, 1)
	require.NoError(t, err)
	require.NoError(t, a.Measure(dqmc.Measurement{Up: halfIdentity(t, 4), Down: halfIdentity(t, 4), Sign: 1}))

	want := map[measure.Observable]float64{
		measure.UpOcc:       0.5,
		measure.DnOcc:       0.5,
		measure.Density:     1,
		measure.DoubleOcc:   0.25,
		measure.PotEnergy:   0,
		measure.KinEnergy:   0,
		measure.TotEnergy:   0,
		measure.ZZFerro:     0.5,
		measure.ZZAntiferro: 0.5,
		measure.AvgSign:     1,
	}
	for o, v := range want {
		assert.InDeltaf(t, v, estimate(t, a, o), 1e-14, "%s", o)
	}
	_, se, err := a.Estimate(measure.Density)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(se))
	assert.Len(t, a.Results(), len(measure.Observables()))
}

// TestFreeKineticEnergy: at U = 0 on a 2-site chain the kinetic energy is −tanh(β/2).
func TestFreeKineticEnergy(t *testing.T) {
	b := chainBuilder(t, 2, propagator.Params{Beta: 1, Slices: 4})
	up, err := b.FreeGreen(lattice.Up)
	require.NoError(t, err)
	dn, err := b.FreeGreen(lattice.Down)
	require.NoError(t, err)

	a, err := measure.New(b, 1)
	require.NoError(t, err)
	require.NoError(t, a.Measure(dqmc.Measurement{Up: up, Down: dn, Sign: 1}))
	assert.InDelta(t, -math.Tanh(0.5), estimate(t, a, measure.KinEnergy), 1e-10)
	assert.InDelta(t, 1.0, estimate(t, a, measure.Density), 1e-10)
}

// TestSignWeighting: bin averages are Σ sign·O / Σ sign.
func TestSignWeighting(t *testing.T) {
	b := chainBuilder(t, 2, propagator.Params{Beta: 1, Slices: 2, U: 2})
	a, err := measure.New(b, 1)
	require.NoError(t, err)

	empty, _ := matrix.NewDense(2, 2) // n = 1
	full := halfIdentity(t, 2)        // n = 1/2
	require.NoError(t, a.Measure(dqmc.Measurement{Up: empty, Down: empty, Sign: 1}))
	require.NoError(t, a.Measure(dqmc.Measurement{Up: full, Down: full, Sign: 1}))
	require.NoError(t, a.Measure(dqmc.Measurement{Up: full, Down: full, Sign: -1}))

	// (1·1 + 1·½ − 1·½) / (1 + 1 − 1)
	assert.InDelta(t, 1.0, estimate(t, a, measure.UpOcc), 1e-15)
	assert.InDelta(t, 1.0/3, estimate(t, a, measure.AvgSign), 1e-15)
	assert.Equal(t, 3, a.Samples(0))
}

// TestEstimateAcrossBins compares with gonum over the per-bin averages.
func TestEstimateAcrossBins(t *testing.T) {
	b := chainBuilder(t, 2, propagator.Params{Beta: 1, Slices: 2, U: 2})
	a, err := measure.New(b, 3)
	require.NoError(t, err)

	diag := []float64{0.2, 0.5, 0.9}
	avgs := make([]float64, 0, 3)
	for bin, d := range diag {
		g, err := matrix.FromRows([][]float64{{d, 0}, {0, d}})
		require.NoError(t, err)
		require.NoError(t, a.Measure(dqmc.Measurement{Up: g, Down: g, Sign: 1, Bin: bin}))
		avgs = append(avgs, 1-d)
	}
	mean, std := stat.MeanStdDev(avgs, nil)
	got, se, err := a.Estimate(measure.UpOcc)
	require.NoError(t, err)
	assert.InDelta(t, mean, got, 1e-15)
	assert.InDelta(t, std/math.Sqrt(3), se, 1e-15)

	_, ok := a.BinAverage(measure.UpOcc, 3)
	assert.False(t, ok)
}

// TestMerge doubles counts and keeps averages.
func TestMerge(t *testing.T) {
	b := chainBuilder(t, 2, propagator.Params{Beta: 1, Slices: 2, U: 2})
	a, _ := measure.New(b, 2)
	c, _ := measure.New(b, 2)
	g, _ := matrix.FromRows([][]float64{{0.3, 0.1}, {0.1, 0.6}})
	for _, acc := range []*measure.Accumulator{a, c} {
		require.NoError(t, acc.Measure(dqmc.Measurement{Up: g, Down: g, Sign: 1, Bin: 1}))
	}
	before := estimate(t, a, measure.DoubleOcc)
	require.NoError(t, a.Merge(c))
	assert.Equal(t, 2, a.Samples(1))
	assert.InDelta(t, before, estimate(t, a, measure.DoubleOcc), 1e-15)

	other, _ := measure.New(b, 3)
	assert.ErrorIs(t, a.Merge(other), measure.ErrIncompatible)
}

func TestErrors(t *testing.T) {
	b := chainBuilder(t, 2, propagator.Params{Beta: 1, Slices: 2, U: 2})
	_, err := measure.New(b, 0)
	assert.ErrorIs(t, err, measure.ErrBadBin)

	a, _ := measure.New(b, 1)
	g := halfIdentity(t, 2)
	assert.ErrorIs(t, a.Measure(dqmc.Measurement{Up: g, Down: g, Bin: 1}), measure.ErrBadBin)
	assert.ErrorIs(t, a.Measure(dqmc.Measurement{Up: halfIdentity(t, 3), Down: g}), measure.ErrShape)

	_, _, err = a.Estimate(measure.Density)
	assert.ErrorIs(t, err, measure.ErrNoData)
	_, _, err = a.Estimate(measure.Observable(99))
	assert.ErrorIs(t, err, measure.ErrUnknownObservable)
	assert.Empty(t, a.Results())
}

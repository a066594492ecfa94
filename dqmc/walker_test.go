package dqmc_test

import (
	"errors"
	"math"
	"testing"

	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/hsfield"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/katalvlaran/dqmc/udt"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/stat"
)

type WalkerSuite struct {
	suite.Suite
	ctx *simctx.Context
}

func TestWalkerSuite(t *testing.T) { suite.Run(t, new(WalkerSuite)) }

func (s *WalkerSuite) SetupTest() { s.ctx = simctx.Discard() }

// builder returns a propagator on an n-site periodic chain.
func (s *WalkerSuite) builder(n int, p propagator.Params) *propagator.Builder {
	g, err := lattice.NewChain(n, lattice.DefaultOptions())
	s.Require().NoError(err)
	p.Sites = n
	b, err := propagator.New(s.ctx, g, p)
	s.Require().NoError(err)
	return b
}

func (s *WalkerSuite) walker(b *propagator.Builder, cfg dqmc.Config, opts ...dqmc.Option) *dqmc.Walker {
	w, err := dqmc.NewWalker(s.ctx, b, cfg, opts...)
	s.Require().NoError(err)
	return w
}

func (s *WalkerSuite) green(w *dqmc.Walker, sp lattice.Spin) *matrix.Dense {
	g, err := w.Green(sp)
	s.Require().NoError(err)
	return g
}

func (s *WalkerSuite) maxDiff(a, b matrix.Matrix) float64 {
	d, err := matrix.MaxAbsDiff(a, b)
	s.Require().NoError(err)
	return d
}

// rowsChain rebuilds propagators from an exported field for an independent recompute.
type rowsChain struct {
	b    *propagator.Builder
	rows [][]int8
}

func (c rowsChain) Len() int { return len(c.rows) }

func (c rowsChain) Propagator(sp lattice.Spin, l int) (*matrix.Dense, error) {
	return c.b.Build(sp, c.rows[l])
}

func halfFilling(u float64) [2]float64 { return [2]float64{u / 2, u / 2} }

// TestRejectAllIsNoOp: a sweep that accepts nothing leaves field and G unchanged.
func (s *WalkerSuite) TestRejectAllIsNoOp() {
	b := s.builder(4, propagator.Params{Beta: 2, Slices: 8, U: 4, Mu: halfFilling(4)})
	cfg := dqmc.DefaultConfig()
	cfg.Seed = 7
	w := s.walker(b, cfg, dqmc.WithAcceptance(dqmc.RejectAll))

	field := w.Field()
	up, dn := s.green(w, lattice.Up), s.green(w, lattice.Down)

	s.Require().NoError(w.Sweep(false))
	s.True(field.Equal(w.Field()))
	s.Equal(b.Slices()-1, w.CurrentSlice())
	s.Less(s.maxDiff(up, s.green(w, lattice.Up)), 1e-9)
	s.Less(s.maxDiff(dn, s.green(w, lattice.Down)), 1e-9)

	st := w.Stats()
	s.Equal(4*8, st.Proposals)
	s.Zero(st.Accepted)
	s.Equal(dqmc.Idle, w.State())
}

// TestReversibility: R(s → −s) · R(−s → s) = 1 for both signs of U.
func (s *WalkerSuite) TestReversibility() {
	for _, u := range []float64{4, -4} {
		b := s.builder(3, propagator.Params{Beta: 1, Slices: 4, U: u, Mu: [2]float64{0.5, 0.5}})
		w := s.walker(b, dqmc.DefaultConfig(), dqmc.WithSeed(11))
		for site := 0; site < 3; site++ {
			forward, err := w.Ratio(site)
			s.Require().NoError(err)
			s.Require().NoError(w.Commit(site))
			backward, err := w.Ratio(site)
			s.Require().NoError(err)
			s.InDeltaf(1.0, forward*backward, 1e-10, "U=%g site %d", u, site)
		}
	}
}

// TestCommitMatchesRecompute: the buffered Sherman–Morrison updates reproduce
// a recompute of the flipped field.
func (s *WalkerSuite) TestCommitMatchesRecompute() {
	b := s.builder(4, propagator.Params{Beta: 1.5, Slices: 6, U: 3, Mu: [2]float64{0.2, -0.1}})
	cfg := dqmc.DefaultConfig()
	cfg.Stabilization.BlockSize = 3
	w := s.walker(b, cfg, dqmc.WithSeed(5))
	for _, site := range []int{0, 2, 3, 2} {
		s.Require().NoError(w.Commit(site))
	}
	c := rowsChain{b: b, rows: w.Field().Rows()}
	for _, sp := range lattice.Spins {
		want, err := udt.Recompute(c, sp, w.CurrentSlice(), 2)
		s.Require().NoError(err)
		s.Less(s.maxDiff(want, s.green(w, sp)), 1e-10)
	}
}

// TestBoundsScenario: 2 sites, L=4, U=4, β=1, 10 warmup sweeps and one measured sweep.
func (s *WalkerSuite) TestBoundsScenario() {
	b := s.builder(2, propagator.Params{Beta: 1, Slices: 4, U: 4, Mu: halfFilling(4)})
	cfg := dqmc.DefaultConfig()
	cfg.Warmup, cfg.Seed = 10, 2024

	var got []dqmc.Measurement
	var w *dqmc.Walker
	sink := dqmc.SinkFunc(func(m dqmc.Measurement) error {
		s.Equal(dqmc.Measuring, w.State())
		got = append(got, m)
		return nil
	})
	w = s.walker(b, cfg, dqmc.WithSink(sink))
	s.Require().NoError(w.Warmup())
	s.Empty(got)
	s.Require().NoError(w.Sweep(true))
	s.Len(got, 4)

	for _, row := range w.Field().Rows() {
		for _, v := range row {
			s.True(v == 1 || v == -1)
		}
	}
	for _, m := range got {
		for _, g := range []*matrix.Dense{m.Up, m.Down} {
			s.Equal(2, g.Rows())
			s.Equal(2, g.Cols())
			for _, d := range g.Diag() {
				s.GreaterOrEqual(d, 0.0)
				s.LessOrEqual(d, 1.0)
			}
		}
	}
	s.Equal(11, w.Stats().Sweeps)
	s.Equal(4, w.Stats().Measurements)
}

// TestFlushRecomputeAgreement runs long enough for many recomputes and
// checks both the recorded deviations and an independent recompute.
func (s *WalkerSuite) TestFlushRecomputeAgreement() {
	b := s.builder(4, propagator.Params{Beta: 2, Slices: 16, U: 4, Mu: halfFilling(4)})
	cfg := dqmc.DefaultConfig()
	cfg.Seed = 99
	cfg.Stabilization.BlockSize = 3
	cfg.Stabilization.WrapFrequency = 4
	w := s.walker(b, cfg)
	for i := 0; i < 5; i++ {
		s.Require().NoError(w.Sweep(false))
	}
	st := w.Stats()
	s.Equal(5*4, st.Recomputes)
	s.Zero(st.Divergences)
	s.LessOrEqual(st.MaxDiff, cfg.Stabilization.DiffLim)
	s.Positive(st.Accepted)

	c := rowsChain{b: b, rows: w.Field().Rows()}
	for _, sp := range lattice.Spins {
		want, err := udt.Recompute(c, sp, w.CurrentSlice(), 4)
		s.Require().NoError(err)
		s.Less(s.maxDiff(want, s.green(w, sp)), 1e-6)
	}
}

// TestStabilityFault: with a zero tolerance budget the first recompute aborts.
func (s *WalkerSuite) TestStabilityFault() {
	b := s.builder(3, propagator.Params{Beta: 1, Slices: 4, U: 4, Mu: halfFilling(4)})
	cfg := dqmc.DefaultConfig()
	cfg.Stabilization.DiffLim = 1e-300
	cfg.Stabilization.MaxWrap = 0
	w := s.walker(b, cfg, dqmc.WithSeed(3))

	err := w.Sweep(false)
	s.Require().ErrorIs(err, dqmc.ErrStabilityFault)
	var fault *dqmc.StabilityFault
	s.Require().True(errors.As(err, &fault))
	s.Zero(fault.Slice)
	s.Equal(1, fault.ErrorRate)
	s.Greater(fault.Diff, 0.0)
}

// TestParticleHoleSign: at μ = U/2 on a bipartite chain the average sign is 1.
func (s *WalkerSuite) TestParticleHoleSign() {
	b := s.builder(4, propagator.Params{Beta: 2, Slices: 16, U: 4, Mu: halfFilling(4)})
	cfg := dqmc.Config{
		Warmup: 20, Sweeps: 100, Bins: 5, MeasureInterval: 4, Seed: 31,
		Stabilization: dqmc.DefaultStabilization(),
	}
	var signs []float64
	sink := dqmc.SinkFunc(func(m dqmc.Measurement) error {
		signs = append(signs, m.Sign)
		return nil
	})
	w := s.walker(b, cfg)
	s.Require().NoError(w.Run(sink))
	s.Len(signs, 100*4)

	mean, std := stat.MeanStdDev(signs, nil)
	stderr := std / math.Sqrt(float64(len(signs)))
	s.InDelta(1.0, mean, math.Max(3*stderr, 1e-12))
}

// TestSnapshotRestore: a restored walker continues on the same trajectory.
func (s *WalkerSuite) TestSnapshotRestore() {
	b := s.builder(3, propagator.Params{Beta: 1, Slices: 6, U: 4, Mu: halfFilling(4)})
	cfg := dqmc.DefaultConfig()
	a := s.walker(b, cfg, dqmc.WithSeed(17))
	for i := 0; i < 3; i++ {
		s.Require().NoError(a.Sweep(false))
	}
	a.SetBin(2)
	snap, err := a.Snapshot()
	s.Require().NoError(err)
	s.Equal(2, snap.Bin)
	s.Equal(3, snap.Sweep)

	c := s.walker(b, cfg, dqmc.WithSeed(1234))
	s.Require().NoError(c.Restore(snap))
	s.Equal(2, c.Bin())
	s.Equal(b.Slices()-1, c.CurrentSlice())

	for i := 0; i < 2; i++ {
		s.Require().NoError(a.Sweep(false))
		s.Require().NoError(c.Sweep(false))
	}
	s.True(a.Field().Equal(c.Field()))

	snap.Field = snap.Field[:2]
	s.ErrorIs(c.Restore(snap), dqmc.ErrShapeMismatch)
}

// TestConstructionErrors covers invalid configs and mismatched fields.
func (s *WalkerSuite) TestConstructionErrors() {
	b := s.builder(2, propagator.Params{Beta: 1, Slices: 4, U: 4})

	cfg := dqmc.DefaultConfig()
	cfg.Stabilization.BlockSize = 0
	_, err := dqmc.NewWalker(s.ctx, b, cfg)
	s.ErrorIs(err, dqmc.ErrInvalidParameter)

	cfg = dqmc.DefaultConfig()
	cfg.Sweeps, cfg.Bins = 3, 4
	_, err = dqmc.NewWalker(s.ctx, b, cfg)
	s.ErrorIs(err, dqmc.ErrInvalidParameter)

	_, err = dqmc.NewWalker(s.ctx, nil, dqmc.DefaultConfig())
	s.ErrorIs(err, dqmc.ErrInvalidParameter)

	f, err := hsfield.FromRows([][]int8{{1, -1, 1}})
	s.Require().NoError(err)
	_, err = dqmc.NewWalker(s.ctx, b, dqmc.DefaultConfig(), dqmc.WithField(f))
	s.ErrorIs(err, dqmc.ErrShapeMismatch)

	s.Panics(func() { dqmc.WithSink(nil) })
}

// TestWithFieldIsCopied: the walker does not mutate the caller's field.
func (s *WalkerSuite) TestWithFieldIsCopied() {
	b := s.builder(2, propagator.Params{Beta: 1, Slices: 2, U: 2})
	f, err := hsfield.FromRows([][]int8{{1, 1}, {-1, 1}})
	s.Require().NoError(err)
	w := s.walker(b, dqmc.DefaultConfig(), dqmc.WithField(f), dqmc.WithAcceptance(func(float64, float64) bool { return true }))
	s.Require().NoError(w.Sweep(false))
	s.False(f.Equal(w.Field()))
	v, _ := f.Value(0, 0)
	s.Equal(int8(1), v)
}

func TestDeriveSeed(t *testing.T) {
	seen := map[uint64]bool{}
	for i := uint64(0); i < 64; i++ {
		x := dqmc.DeriveSeed(42, i)
		if seen[x] || x == 0 {
			t.Fatalf("stream %d: seed %d repeated or zero", i, x)
		}
		seen[x] = true
	}
	if dqmc.DeriveSeed(1, 2) != dqmc.DeriveSeed(1, 2) {
		t.Fatal("DeriveSeed is not deterministic")
	}
}

// SPDX-License-Identifier: MIT

package dqmc

import (
	"fmt"
	"math/rand/v2"

	"github.com/katalvlaran/dqmc/green"
	"github.com/katalvlaran/dqmc/hsfield"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/katalvlaran/dqmc/udt"
	"github.com/sirupsen/logrus"
)

// Walker is one Markov chain over Hubbard–Stratonovich fields.
type Walker struct {
	id      int
	log     logrus.FieldLogger
	metrics *simctx.Metrics

	b      *propagator.Builder
	cfg    Config
	accept AcceptFunc
	sink   Sink

	pcg   *rand.PCG
	rng   *rand.Rand
	field *hsfield.Field
	green *green.Function

	state State
	slice int // slice G refers to
	sweep int
	bin   int
	stats Stats
}

// NewWalker draws (or takes) a field and computes the stabilized Green's
// functions at slice L−1, so that the first sweep wraps them to slice 0.
//
// Errors: ErrInvalidParameter for a nil context or builder or an invalid
// config, ErrShapeMismatch for a field of the wrong shape, and
// ErrStabilityFault when the initial recompute fails.
func NewWalker(ctx *simctx.Context, b *propagator.Builder, cfg Config, opts ...Option) (*Walker, error) {
	if ctx == nil || b == nil {
		return nil, fmt.Errorf("nil context or builder: %w", ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wc := walkerConfig{accept: Metropolis}
	for _, opt := range opts {
		opt(&wc)
	}
	seed := cfg.Seed
	if wc.seed != nil {
		seed = *wc.seed
	}

	w := &Walker{
		id:      wc.id,
		log:     ctx.Logger.WithField("walker", wc.id),
		metrics: ctx.Metrics,
		b:       b,
		cfg:     cfg,
		accept:  wc.accept,
		sink:    wc.sink,
		pcg:     newPCG(seed),
	}
	w.rng = rand.New(w.pcg)

	w.field = wc.field
	if w.field == nil {
		f, err := hsfield.New(b.Slices(), b.Sites(), w.rng)
		if err != nil {
			return nil, err
		}
		w.field = f
	} else if err := w.checkShape(w.field); err != nil {
		return nil, err
	}

	if err := w.reset(); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"seed": seed, "sites": b.Sites(), "slices": b.Slices()}).Debug("walker ready")

	return w, nil
}

// reset rebuilds the Green's function state from the field at slice L−1.
func (w *Walker) reset() error {
	last := w.b.Slices() - 1
	var gs [2]*matrix.Dense
	for _, s := range lattice.Spins {
		g, err := udt.Recompute(w.chain(), s, last, w.cfg.Stabilization.OrthoInterval)
		if err != nil {
			return &StabilityFault{Slice: last, Sweep: w.sweep, Err: err}
		}
		gs[s] = g
	}
	gf, err := green.New(gs[lattice.Up], gs[lattice.Down], w.cfg.Stabilization.BlockSize, last)
	if err != nil {
		return err
	}
	w.green, w.slice, w.state = gf, last, Idle

	return nil
}

func (w *Walker) checkShape(f *hsfield.Field) error {
	if f.Slices() != w.b.Slices() || f.Sites() != w.b.Sites() {
		return fmt.Errorf("field %dx%d, model %dx%d: %w",
			f.Slices(), f.Sites(), w.b.Slices(), w.b.Sites(), ErrShapeMismatch)
	}

	return nil
}

// ID returns the walker label.
func (w *Walker) ID() int { return w.id }

// State returns the driver state.
func (w *Walker) State() State { return w.state }

// CurrentSlice returns the slice the Green's functions refer to.
func (w *Walker) CurrentSlice() int { return w.slice }

// Field returns a copy of the field.
func (w *Walker) Field() *hsfield.Field { return w.field.Clone() }

// Green flushes and returns a copy of G_σ at CurrentSlice.
func (w *Walker) Green(s lattice.Spin) (*matrix.Dense, error) {
	if err := w.green.Flush(true); err != nil {
		return nil, err
	}

	return w.green.Matrix(s)
}

// Stats returns the counters.
func (w *Walker) Stats() Stats { return w.stats }

// Bin returns the current measurement bin.
func (w *Walker) Bin() int { return w.bin }

// SetBin sets the bin index attached to later measurements.
func (w *Walker) SetBin(b int) { w.bin = b }

// SetSink replaces the measurement sink; nil disables delivery.
func (w *Walker) SetSink(s Sink) { w.sink = s }

// Config returns the sampling schedule.
func (w *Walker) Config() Config { return w.cfg }

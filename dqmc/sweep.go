// SPDX-License-Identifier: MIT

package dqmc

import (
	"fmt"
	"math"
	"strconv"

	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/katalvlaran/dqmc/udt"
	"github.com/sirupsen/logrus"
)

// proposal is a flip evaluated against the current Green's functions.
type proposal struct {
	ratio float64
	gamma [2]float64
}

// propose evaluates flipping (CurrentSlice, site).
//
// Implementation:
//   - Stage 1: old = s(l,i); δ_σ = exp(Δv_σ(old)) − 1.
//   - Stage 2: R_σ = 1 + δ_σ·(1 − G_σ[i,i]) from the buffer-aware diagonal.
//   - Stage 3: R = R_↑·R_↓·boson(old); γ_σ = δ_σ / R_σ.
//
// Complexity: O(k) with k buffered updates.
func (w *Walker) propose(site int) (proposal, error) {
	old, err := w.field.Value(w.slice, site)
	if err != nil {
		return proposal{}, err
	}
	p := proposal{ratio: w.b.BosonRatio(old)}
	for _, s := range lattice.Spins {
		gii, err := w.green.Diagonal(s, site)
		if err != nil {
			return proposal{}, err
		}
		delta := math.Exp(w.b.DeltaV(s, old)) - 1
		rs := 1 + delta*(1-gii)
		p.ratio *= rs
		p.gamma[s] = delta / rs
	}

	return p, nil
}

// Ratio returns the determinant ratio of flipping site at CurrentSlice.
// The state is not modified.
// Errors: hsfield.ErrIndexOutOfRange.
func (w *Walker) Ratio(site int) (float64, error) {
	p, err := w.propose(site)
	if err != nil {
		return 0, err
	}

	return p.ratio, nil
}

// Commit flips site at CurrentSlice unconditionally and enqueues the
// Sherman–Morrison corrections of both spins.
// Errors: hsfield.ErrIndexOutOfRange, numeric errors of a triggered flush.
func (w *Walker) Commit(site int) error {
	p, err := w.propose(site)
	if err != nil {
		return err
	}

	return w.commit(site, p)
}

func (w *Walker) commit(site int, p proposal) error {
	if err := w.field.Flip(w.slice, site); err != nil {
		return err
	}
	for _, s := range lattice.Spins {
		if err := w.green.UpdateRank1(s, site, p.gamma[s]); err != nil {
			return fmt.Errorf("update %s at (%d,%d): %w", s, w.slice, site, err)
		}
	}

	return nil
}

// updateSlice proposes one flip per site of CurrentSlice.
func (w *Walker) updateSlice() error {
	for i := 0; i < w.b.Sites(); i++ {
		p, err := w.propose(i)
		if err != nil {
			return err
		}
		u := w.rng.Float64()
		w.stats.Proposals++
		switch {
		case math.IsNaN(p.ratio) || math.IsInf(p.ratio, 0):
			w.stats.NonFinite++
			w.metrics.Proposals.WithLabelValues(simctx.ResultNonFinite).Inc()
			continue
		case !w.accept(p.ratio, u):
			w.metrics.Proposals.WithLabelValues(simctx.ResultRejected).Inc()
			continue
		}
		if err = w.commit(i, p); err != nil {
			return err
		}
		w.stats.Accepted++
		w.metrics.Proposals.WithLabelValues(simctx.ResultAccepted).Inc()
	}

	return nil
}

// Sweep runs one pass over all slices. With measure set, the sink receives
// a measurement after every slice l with l % MeasureInterval == 0.
//
// Errors: *StabilityFault (matches ErrStabilityFault), sink errors and
// numeric errors. The walker should be discarded after an error.
func (w *Walker) Sweep(measure bool) error {
	last := w.b.Slices() - 1
	for l := 0; l <= last; l++ {
		w.state = SweepingSlice
		row, err := w.field.Row(l)
		if err != nil {
			return err
		}
		err = w.green.Wrap(l, func(s lattice.Spin, g *matrix.Dense) (*matrix.Dense, error) {
			return w.b.Wrap(s, row, g)
		})
		if err != nil {
			return err
		}
		w.slice = l

		if err = w.updateSlice(); err != nil {
			return err
		}
		if l%w.cfg.Stabilization.WrapFrequency == 0 {
			if err = w.recompute(); err != nil {
				return err
			}
		}
		if measure && l%w.cfg.MeasureInterval == 0 {
			if err = w.measure(); err != nil {
				return err
			}
		}
	}
	w.state = Idle
	w.sweep++
	w.stats.Sweeps++
	w.metrics.Sweeps.WithLabelValues(strconv.FormatBool(measure)).Inc()
	w.log.WithFields(logrus.Fields{
		"sweep": w.sweep, "acceptance": w.stats.Acceptance(), "wraps": w.green.Wraps(),
	}).Debug("sweep done")

	return nil
}

// recompute replaces G at CurrentSlice by the stabilized product and
// records a divergence when the incremental matrix was off by more than DiffLim.
func (w *Walker) recompute() error {
	w.state = Recomputing
	if err := w.green.Flush(true); err != nil {
		return err
	}
	var (
		fresh [2]*matrix.Dense
		diff  float64
	)
	for _, s := range lattice.Spins {
		g, err := udt.Recompute(w.chain(), s, w.slice, w.cfg.Stabilization.OrthoInterval)
		if err != nil {
			w.metrics.Faults.Inc()
			fault := &StabilityFault{Slice: w.slice, Sweep: w.sweep, ErrorRate: w.green.ErrorRate(), Diff: math.NaN(), Err: err}
			w.log.WithError(fault).Error("recompute failed")
			return fault
		}
		old, err := w.green.Matrix(s)
		if err != nil {
			return err
		}
		d, err := matrix.MaxAbsDiff(old, g)
		if err != nil {
			return err
		}
		diff = max(diff, d)
		fresh[s] = g
	}
	if err := w.green.Replace(fresh[lattice.Up], fresh[lattice.Down], w.slice); err != nil {
		return err
	}

	w.stats.Recomputes++
	w.stats.LastDiff = diff
	w.stats.MaxDiff = max(w.stats.MaxDiff, diff)
	w.metrics.Recomputes.Inc()
	w.metrics.RecomputeDiff.Observe(diff)
	if diff <= w.cfg.Stabilization.DiffLim {
		return nil
	}

	rate := w.green.RecordDivergence()
	w.stats.Divergences++
	w.metrics.Divergences.Inc()
	entry := w.log.WithFields(logrus.Fields{"slice": w.slice, "sweep": w.sweep, "diff": diff, "error_rate": rate})
	if rate > w.cfg.Stabilization.MaxWrap {
		w.metrics.Faults.Inc()
		fault := &StabilityFault{Slice: w.slice, Sweep: w.sweep, ErrorRate: rate, Diff: diff}
		entry.Error("stability fault")
		return fault
	}
	entry.Warn("incremental Green's function diverged")

	return nil
}

// measure hands copies of the flushed matrices and the sign to the sink.
func (w *Walker) measure() error {
	w.state = Measuring
	if err := w.green.Flush(true); err != nil {
		return err
	}
	m := Measurement{Sign: 1, Bin: w.bin, Slice: w.slice, Sweep: w.sweep}
	for _, s := range lattice.Spins {
		g, err := w.green.Matrix(s)
		if err != nil {
			return err
		}
		sg, err := detSignIPlus(g)
		if err != nil {
			return err
		}
		if sg == 0 {
			w.log.WithFields(logrus.Fields{"slice": w.slice, "spin": s}).Warn("singular I+G, sign 0")
		}
		m.Sign *= sg
		if s == lattice.Up {
			m.Up = g
		} else {
			m.Down = g
		}
	}
	w.stats.Measurements++
	w.metrics.Measurements.Inc()
	if w.sink == nil {
		return nil
	}

	return w.sink.Measure(m)
}

// detSignIPlus returns sgn det(I+G), 0 when singular.
func detSignIPlus(g *matrix.Dense) (float64, error) {
	m, err := matrix.AddIdentity(g, 1)
	if err != nil {
		return 0, err
	}

	return matrix.DetSign(m)
}

// Warmup runs Config.Warmup unmeasured sweeps.
func (w *Walker) Warmup() error {
	for i := 0; i < w.cfg.Warmup; i++ {
		if err := w.Sweep(false); err != nil {
			return err
		}
	}
	w.log.WithField("sweeps", w.cfg.Warmup).Debug("warmup done")

	return nil
}

// RunBin runs Config.SweepsPerBin measured sweeps into bin.
func (w *Walker) RunBin(bin int) error {
	w.SetBin(bin)
	for i := 0; i < w.cfg.SweepsPerBin(); i++ {
		if err := w.Sweep(true); err != nil {
			return err
		}
	}

	return w.green.Flush(true)
}

// Run performs Warmup and then every bin in order, delivering to sink
// (or to the sink given at construction when sink is nil).
func (w *Walker) Run(sink Sink) error {
	if sink != nil {
		w.sink = sink
	}
	if err := w.Warmup(); err != nil {
		return err
	}
	for bin := 0; bin < w.cfg.Bins; bin++ {
		if err := w.RunBin(bin); err != nil {
			return err
		}
	}
	w.log.WithFields(logrus.Fields{
		"sweeps": w.stats.Sweeps, "acceptance": w.stats.Acceptance(),
		"recomputes": w.stats.Recomputes, "divergences": w.stats.Divergences, "max_diff": w.stats.MaxDiff,
	}).Info("run complete")

	return nil
}

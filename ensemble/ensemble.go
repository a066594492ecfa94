// SPDX-License-Identifier: MIT

// Package ensemble runs independent walkers of one model in parallel and
// reduces their measurements bin by bin.
//
// Each walker owns its field, Green's functions, random stream and
// accumulator. Bins are separated by a barrier (errgroup.Wait): no walker
// starts bin b+1 before every walker has finished and flushed bin b, and
// the bin is then reduced into the ensemble accumulator by summation.
// Cancellation of ctx is observed between bins, never inside a sweep.
package ensemble

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/measure"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNoWalkers is returned for walkers < 1.
var ErrNoWalkers = errors.New("ensemble: at least one walker is required")

// BinHook runs after the barrier of every bin, before the next one starts.
// The walkers are idle; the hook may snapshot them but must not sweep.
type BinHook func(bin int, walkers []*dqmc.Walker) error

// Option customizes Run.
type Option func(*runConfig)

type runConfig struct {
	parallel int
	hook     BinHook
	walker   []dqmc.Option
	prepare  func(i int, w *dqmc.Walker) error
	start    int
}

// WithParallelism bounds the goroutines working at once (default: one per walker).
// Panics on n < 1.
func WithParallelism(n int) Option {
	if n < 1 {
		panic("ensemble: WithParallelism(n < 1)")
	}

	return func(c *runConfig) { c.parallel = n }
}

// WithBinHook installs h. Panics on nil.
func WithBinHook(h BinHook) Option {
	if h == nil {
		panic("ensemble: WithBinHook(nil)")
	}

	return func(c *runConfig) { c.hook = h }
}

// WithWalkerOptions appends options to every NewWalker call.
func WithWalkerOptions(opts ...dqmc.Option) Option {
	return func(c *runConfig) { c.walker = append(c.walker, opts...) }
}

// WithPrepare runs fn on every walker after construction and before
// warmup, e.g. to restore a checkpoint. Panics on nil.
func WithPrepare(fn func(i int, w *dqmc.Walker) error) Option {
	if fn == nil {
		panic("ensemble: WithPrepare(nil)")
	}

	return func(c *runConfig) { c.prepare = fn }
}

// WithStartBin resumes at bin: warmup is skipped when bin > 0 and earlier
// bins stay empty. Used together with WithPrepare to restore checkpoints.
// Panics on a negative bin.
func WithStartBin(bin int) Option {
	if bin < 0 {
		panic("ensemble: WithStartBin(bin < 0)")
	}

	return func(c *runConfig) { c.start = bin }
}

// Result is the reduced outcome of a run.
type Result struct {
	Measurements *measure.Accumulator // sum over walkers
	Walkers      []dqmc.Stats         // per walker, by index
	Total        dqmc.Stats
}

// Run builds walkers walkers with seeds DeriveSeed(cfg.Seed, i), runs
// Warmup and then cfg.Bins bins, and returns the reduced measurements.
//
// Implementation:
//   - Stage 1: construct walkers and their private accumulators.
//   - Stage 2: warmup in parallel (skipped on resume); barrier.
//   - Stage 3: for each bin, RunBin in parallel; barrier; reduce the bin; hook.
//
// Errors: ErrNoWalkers, construction errors, the first walker error of a
// stage (a *dqmc.StabilityFault aborts the run), ctx.Err() between bins.
func Run(ctx context.Context, sctx *simctx.Context, b *propagator.Builder, cfg dqmc.Config, walkers int, opts ...Option) (*Result, error) {
	if walkers < 1 {
		return nil, ErrNoWalkers
	}
	rc := runConfig{parallel: walkers}
	for _, opt := range opts {
		opt(&rc)
	}
	log := sctx.Logger.WithField("component", "ensemble")

	total, err := measure.New(b, cfg.Bins)
	if err != nil {
		return nil, err
	}
	ws := make([]*dqmc.Walker, walkers)
	accs := make([]*measure.Accumulator, walkers)
	for i := range ws {
		if accs[i], err = measure.New(b, cfg.Bins); err != nil {
			return nil, err
		}
		wopts := append([]dqmc.Option{
			dqmc.WithID(i),
			dqmc.WithSeed(dqmc.DeriveSeed(cfg.Seed, uint64(i))),
			dqmc.WithSink(accs[i]),
		}, rc.walker...)
		if ws[i], err = dqmc.NewWalker(sctx, b, cfg, wopts...); err != nil {
			return nil, fmt.Errorf("walker %d: %w", i, err)
		}
		if rc.prepare != nil {
			if err = rc.prepare(i, ws[i]); err != nil {
				return nil, fmt.Errorf("walker %d: %w", i, err)
			}
		}
	}

	if rc.start == 0 {
		if err = stage(ctx, rc.parallel, ws, func(w *dqmc.Walker) error { return w.Warmup() }); err != nil {
			return nil, fmt.Errorf("warmup: %w", err)
		}
		log.WithFields(logrus.Fields{"walkers": walkers, "sweeps": cfg.Warmup}).Info("warmup complete")
	} else {
		log.WithField("bin", rc.start).Info("resuming")
	}

	for bin := rc.start; bin < cfg.Bins; bin++ {
		if err = stage(ctx, rc.parallel, ws, func(w *dqmc.Walker) error { return w.RunBin(bin) }); err != nil {
			return nil, fmt.Errorf("bin %d: %w", bin, err)
		}
		for _, acc := range accs {
			if err = total.MergeBin(acc, bin); err != nil {
				return nil, err
			}
		}
		if rc.hook != nil {
			if err = rc.hook(bin, ws); err != nil {
				return nil, fmt.Errorf("bin %d hook: %w", bin, err)
			}
		}
		entry := log.WithFields(logrus.Fields{"bin": bin, "samples": total.Samples(bin)})
		if sign, ok := total.BinAverage(measure.AvgSign, bin); ok {
			entry = entry.WithField("sign", sign)
		}
		entry.Info("bin reduced")
	}

	res := &Result{Measurements: total, Walkers: make([]dqmc.Stats, walkers)}
	for i, w := range ws {
		res.Walkers[i] = w.Stats()
		res.Total = res.Total.Add(res.Walkers[i])
	}

	return res, nil
}

// stage runs fn on every walker concurrently and waits for all of them.
func stage(ctx context.Context, limit int, ws []*dqmc.Walker, fn func(*dqmc.Walker) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, w := range ws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(w); err != nil {
				return fmt.Errorf("walker %d: %w", w.ID(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

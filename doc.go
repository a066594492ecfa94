// Package dqmc is a determinant quantum Monte Carlo engine for the
// Hubbard model on finite lattices.
//
// 🚀 What is in the box?
//
//	• Dense linear algebra tuned for Green's functions: LU, column-pivoted QR, rank-k updates
//	• Lattices: periodic/open chains and rectangles, nearest and diagonal hopping
//	• The discrete Hubbard–Stratonovich decoupling for both signs of U
//	• Delayed (blocked) Sherman–Morrison updates of the equal-time Green's function
//	• QR-stabilized recomputes of long imaginary-time products
//	• Metropolis walkers, binned sign-weighted observables, parallel ensembles
//	• YAML/env configuration, YAML checkpoints, logrus logging, prometheus metrics
//
// Under the hood the packages form a pipeline, leaves first:
//
//	matrix/:     dense kernels and factorizations
//	lattice/:    geometry, hopping matrices, sublattices
//	hsfield/:    the ±1 auxiliary field
//	propagator/: slice propagators B_σ(l), wraps, free Green's function
//	green/:      Green's-function state with a deferred update buffer
//	udt/:        stabilized recompute through U·D·T decompositions
//	dqmc/:       the walker: sweeps, acceptance, recompute schedule, snapshots
//	measure/:    observables and bin statistics
//	ensemble/:   independent walkers with a reduction barrier per bin
//	simctx/:     explicit execution context (logger, metrics, run id)
//	config/:     viper-based run description
//	checkpoint/: snapshot persistence
//	cmd/dqmc:    command-line entry point
//
// Quick example:
//
//	sctx := simctx.New()
//	geom, _ := lattice.NewRectangular(4, 4, lattice.DefaultOptions())
//	b, _ := propagator.New(sctx, geom, propagator.Params{Sites: 16, Beta: 4, Slices: 40, U: 4, Mu: [2]float64{2, 2}})
//	acc, _ := measure.New(b, 10)
//	w, _ := dqmc.NewWalker(sctx, b, dqmc.DefaultConfig(), dqmc.WithSink(acc))
//	_ = w.Run(nil)
//	mean, stderr, _ := acc.Estimate(measure.DoubleOcc)
//
// See DESIGN.md for the numerical conventions.
package dqmc

// SPDX-License-Identifier: MIT

// Package dqmc drives determinant quantum Monte Carlo sampling of the
// Hubbard model for one walker.
//
// A Walker owns a Hubbard–Stratonovich field (hsfield), the equal-time
// Green's functions of both spins (green) and a private random stream.
// A sweep visits the slices l = 0…L−1 in order. For each slice it
//
//  1. wraps G from slice l−1 to slice l,
//  2. proposes a flip at every site with the determinant ratio
//     R = Π_σ [1 + (1 − G_σ[i,i])·(exp(Δv_σ) − 1)] and accepts iff u < min(1, R),
//  3. every WrapFrequency slices replaces G by a stabilized recompute (udt)
//     and compares it with the incrementally maintained matrix,
//  4. every MeasureInterval slices of a measured sweep hands
//     (G_↑, G_↓, sign, bin) to the Sink.
//
// Walkers are strictly sequential and not safe for concurrent use;
// independent walkers share nothing but the immutable propagator.Builder
// and the execution context, so they run in parallel (see package ensemble).
//
// Construction is phase sequenced:
//
//	lattice.Geometry → propagator.Params → propagator.Builder → dqmc.Walker
//
// and each phase is immutable once built.
package dqmc

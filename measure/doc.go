// Package measure accumulates equal-time observables of the Hubbard model
// from the Green's functions a dqmc.Walker hands to its sink.
//
// Every observable O is recorded as a sign-weighted sum per bin,
//
//	⟨O⟩_bin = Σ sign·O / Σ sign,
//
// and estimates are the mean over bins with the standard error of the bin
// averages. Accumulators of independent walkers with the same bin layout
// are combined with Merge, which is a plain sum.
//
// Single-configuration expectation values follow Wick's theorem at fixed
// field: ⟨c†_iσ c_jσ⟩ = δ_ij − G_σ[j,i], and the two spins are independent.
package measure

// SPDX-License-Identifier: MIT

package dqmc

import "math/rand/v2"

// DefaultSeed replaces a zero seed.
const DefaultSeed uint64 = 1

// pcgStream is the fixed second word of every walker's PCG state.
const pcgStream uint64 = 0xda3e39cb94b95bdb

// newPCG returns a deterministic PCG source. seed == 0 selects DefaultSeed.
// PCG is used for its binary state, which snapshots carry.
func newPCG(seed uint64) *rand.PCG {
	if seed == 0 {
		seed = DefaultSeed
	}

	return rand.NewPCG(seed, pcgStream)
}

// DeriveSeed mixes a parent seed and a stream id (walker index) into an
// independent 64-bit seed with a SplitMix64 finalizer.
// Complexity: O(1).
func DeriveSeed(parent, stream uint64) uint64 {
	x := parent ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	if x == 0 {
		return DefaultSeed
	}

	return x
}

// SPDX-License-Identifier: MIT

package udt

import (
	"fmt"

	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
)

// Chain supplies the slice propagators of one field configuration.
// Propagator is called once per slice per recompute; implementations
// derive the matrix on demand and need not cache it.
type Chain interface {
	Len() int
	Propagator(s lattice.Spin, slice int) (*matrix.Dense, error)
}

// Recompute returns the equal-time Green's function of spin s at slice,
//
//	G(l) = (I + B(l)·B(l−1)·…·B(0)·B(L−1)·…·B(l+1))⁻¹,
//
// by left-multiplying B(l+1), B(l+2), …, B(l+L) (indices mod L) into an
// identity decomposition and refactoring every orthoEvery steps and once
// more at the end. orthoEvery < 1 is treated as 1.
//
// Errors: ErrEmptyChain, matrix.ErrOutOfRange for a slice outside [0,L),
// ErrStabilityFault, and errors of the chain.
// Complexity: O(L·n³).
func Recompute(chain Chain, s lattice.Spin, slice, orthoEvery int) (*matrix.Dense, error) {
	l := chain.Len()
	if l < 1 {
		return nil, ErrEmptyChain
	}
	if slice < 0 || slice >= l {
		return nil, fmt.Errorf("udt: slice %d of %d: %w", slice, l, matrix.ErrOutOfRange)
	}
	if orthoEvery < 1 {
		orthoEvery = 1
	}

	var dec *Decomposition
	for step := 1; step <= l; step++ {
		k := (slice + step) % l
		b, err := chain.Propagator(s, k)
		if err != nil {
			return nil, fmt.Errorf("udt: propagator %s/%d: %w", s, k, err)
		}
		if dec == nil {
			if dec, err = Identity(b.Rows()); err != nil {
				return nil, err
			}
		}
		if err = dec.LeftMul(b); err != nil {
			return nil, fmt.Errorf("slice %d: %w", k, err)
		}
		if step%orthoEvery == 0 {
			if err = dec.Refactor(); err != nil {
				return nil, fmt.Errorf("slice %d: %w", k, err)
			}
		}
	}

	return dec.Green()
}

// SPDX-License-Identifier: MIT

package dqmc

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/dqmc/propagator"
	"github.com/katalvlaran/dqmc/udt"
)

var (
	// ErrStabilityFault is the sentinel every *StabilityFault unwraps to.
	ErrStabilityFault = udt.ErrStabilityFault

	// ErrInvalidParameter reports a configuration rejected before any sweep.
	ErrInvalidParameter = propagator.ErrInvalidParameter

	// ErrShapeMismatch reports a field or snapshot whose shape differs from the model.
	ErrShapeMismatch = errors.New("dqmc: shape mismatch")
)

// StabilityFault aborts a run: the incrementally maintained Green's
// function diverged from the recomputed one more than MaxWrap times, or a
// recompute itself left the representable range.
type StabilityFault struct {
	Slice     int     // slice of the offending recompute
	Sweep     int     // sweep counter at the fault
	ErrorRate int     // divergences recorded so far
	Diff      float64 // last max|G_incremental − G_recomputed|, NaN when the recompute failed
	Err       error   // underlying numeric error, nil for an error-rate fault
}

func (f *StabilityFault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("dqmc: stability fault at slice %d (sweep %d): %v", f.Slice, f.Sweep, f.Err)
	}

	return fmt.Sprintf("dqmc: stability fault at slice %d (sweep %d): error rate %d, diff %.3g",
		f.Slice, f.Sweep, f.ErrorRate, f.Diff)
}

// Unwrap exposes ErrStabilityFault and the numeric cause.
func (f *StabilityFault) Unwrap() []error {
	if f.Err != nil {
		return []error{ErrStabilityFault, f.Err}
	}

	return []error{ErrStabilityFault}
}

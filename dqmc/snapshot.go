// SPDX-License-Identifier: MIT

package dqmc

import (
	"fmt"

	"github.com/katalvlaran/dqmc/hsfield"
)

// Snapshot is the resumable state of a walker between sweeps.
// The Green's functions are not part of it: they are a deterministic
// function of the field and are recomputed on Restore.
type Snapshot struct {
	Field [][]int8 `yaml:"field"`
	RNG   []byte   `yaml:"rng"`
	Bin   int      `yaml:"bin"`
	Sweep int      `yaml:"sweep"`
}

// Snapshot captures field, random state, bin and sweep counter.
func (w *Walker) Snapshot() (Snapshot, error) {
	state, err := w.pcg.MarshalBinary()
	if err != nil {
		return Snapshot{}, fmt.Errorf("rng state: %w", err)
	}

	return Snapshot{Field: w.field.Rows(), RNG: state, Bin: w.bin, Sweep: w.sweep}, nil
}

// Restore installs a snapshot and recomputes the Green's functions at
// slice L−1. Counters in Stats are kept.
// Errors: ErrShapeMismatch, hsfield.ErrBadShape, RNG decoding errors,
// ErrStabilityFault.
func (w *Walker) Restore(s Snapshot) error {
	f, err := hsfield.FromRows(s.Field)
	if err != nil {
		return err
	}
	if err = w.checkShape(f); err != nil {
		return err
	}
	if err = w.pcg.UnmarshalBinary(s.RNG); err != nil {
		return fmt.Errorf("rng state: %w", err)
	}
	w.field, w.bin, w.sweep = f, s.Bin, s.Sweep

	return w.reset()
}

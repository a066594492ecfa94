package green

import (
	"fmt"

	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
)

// Function is the pair of spin channels of one walker plus the bookkeeping
// the driver uses to schedule recomputes: the slice the matrices refer to,
// the number of wraps since the last stabilized recompute, the slice of
// that recompute, and the accumulated divergence count.
type Function struct {
	ch            [2]*Channel
	slice         int
	wraps         int
	lastRecompute int
	errorRate     int
}

// New builds the state from freshly recomputed matrices at slice.
// The matrices are owned by the Function afterwards.
// Errors: see NewChannel; mismatched sizes give matrix.ErrDimensionMismatch.
func New(up, down *matrix.Dense, blockSize, slice int) (*Function, error) {
	cu, err := NewChannel(up, blockSize)
	if err != nil {
		return nil, fmt.Errorf("up: %w", err)
	}
	cd, err := NewChannel(down, blockSize)
	if err != nil {
		return nil, fmt.Errorf("down: %w", err)
	}
	if cu.Sites() != cd.Sites() {
		return nil, fmt.Errorf("up %d vs down %d sites: %w", cu.Sites(), cd.Sites(), matrix.ErrDimensionMismatch)
	}

	return &Function{ch: [2]*Channel{cu, cd}, slice: slice, lastRecompute: slice}, nil
}

// Channel exposes the per-spin state.
func (f *Function) Channel(s lattice.Spin) *Channel { return f.ch[s] }

// UpdateRank1 enqueues the Sherman–Morrison correction of spin s.
func (f *Function) UpdateRank1(s lattice.Spin, site int, gamma float64) error {
	return f.ch[s].UpdateRank1(site, gamma)
}

// Diagonal returns the buffer-aware G_σ[j,j].
func (f *Function) Diagonal(s lattice.Spin, site int) (float64, error) {
	return f.ch[s].Diagonal(site)
}

// Flush flushes both spins.
func (f *Function) Flush(forced bool) error {
	for _, s := range lattice.Spins {
		if err := f.ch[s].Flush(forced); err != nil {
			return fmt.Errorf("flush %s: %w", s, err)
		}
	}

	return nil
}

// Matrix returns a copy of the stored matrix of spin s (flushed state only).
func (f *Function) Matrix(s lattice.Spin) (*matrix.Dense, error) {
	return f.ch[s].Matrix()
}

// Wrap flushes, applies advance to each spin and moves to slice next.
// The wrap counter is incremented once per call.
func (f *Function) Wrap(next int, advance func(s lattice.Spin, g *matrix.Dense) (*matrix.Dense, error)) error {
	if err := f.Flush(true); err != nil {
		return err
	}
	var out [2]*matrix.Dense
	for _, s := range lattice.Spins {
		g, err := advance(s, f.ch[s].g)
		if err != nil {
			return fmt.Errorf("wrap %s to slice %d: %w", s, next, err)
		}
		out[s] = g
	}
	for _, s := range lattice.Spins {
		if err := f.ch[s].replace(out[s]); err != nil {
			return err
		}
	}
	f.slice = next
	f.wraps++

	return nil
}

// Replace installs recomputed matrices for slice, resetting the wrap counter
// and recording slice as the last recompute. Buffers must be flushed.
func (f *Function) Replace(up, down *matrix.Dense, slice int) error {
	for s, g := range [2]*matrix.Dense{up, down} {
		if err := f.ch[s].replace(g); err != nil {
			return fmt.Errorf("replace %s: %w", lattice.Spin(s), err)
		}
	}
	f.slice = slice
	f.lastRecompute = slice
	f.wraps = 0

	return nil
}

// RecordDivergence increments and returns the error-rate counter.
func (f *Function) RecordDivergence() int {
	f.errorRate++

	return f.errorRate
}

// Slice returns the slice index the matrices currently refer to.
func (f *Function) Slice() int { return f.slice }

// Wraps returns the wraps since the last recompute.
func (f *Function) Wraps() int { return f.wraps }

// LastRecompute returns the slice of the last stabilized recompute.
func (f *Function) LastRecompute() int { return f.lastRecompute }

// ErrorRate returns the accumulated divergence count.
func (f *Function) ErrorRate() int { return f.errorRate }

// Pending returns the buffered corrections of spin s.
func (f *Function) Pending(s lattice.Spin) int { return f.ch[s].Pending() }

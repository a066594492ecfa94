// Package hsfield owns the discrete Hubbard–Stratonovich field: one ±1
// value per (time slice, site), created once at random and mutated in place
// by accepted Metropolis moves. It is never resized.
package hsfield

import (
	"fmt"
	"math/rand/v2"
)

// Field is a Slices×Sites array of ±1 values stored row-major by slice.
// The zero value is unusable; construct with New or FromRows.
type Field struct {
	slices, sites int
	data          []int8
}

// New draws a uniformly random ±1 field from rng.
// Errors: ErrBadShape when slices or sites < 1.
// Complexity: O(L·N).
func New(slices, sites int, rng *rand.Rand) (*Field, error) {
	if slices < 1 || sites < 1 {
		return nil, fmt.Errorf("%dx%d: %w", slices, sites, ErrBadShape)
	}
	f := &Field{slices: slices, sites: sites, data: make([]int8, slices*sites)}
	for i := range f.data {
		if rng.IntN(2) == 0 {
			f.data[i] = -1
		} else {
			f.data[i] = 1
		}
	}

	return f, nil
}

// FromRows builds a field from explicit values; rows[l][i] must be ±1.
// Used to restore checkpoints and to pin configurations in tests.
// Errors: ErrBadShape.
func FromRows(rows [][]int8) (*Field, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrBadShape
	}
	f := &Field{slices: len(rows), sites: len(rows[0]), data: make([]int8, 0, len(rows)*len(rows[0]))}
	for l, row := range rows {
		if len(row) != f.sites {
			return nil, fmt.Errorf("slice %d has %d sites, want %d: %w", l, len(row), f.sites, ErrBadShape)
		}
		for i, v := range row {
			if v != 1 && v != -1 {
				return nil, fmt.Errorf("(%d,%d)=%d: %w", l, i, v, ErrBadShape)
			}
		}
		f.data = append(f.data, row...)
	}

	return f, nil
}

// Slices returns L.
func (f *Field) Slices() int { return f.slices }

// Sites returns N.
func (f *Field) Sites() int { return f.sites }

// Flip negates the entry at (slice, site).
// Errors: ErrIndexOutOfRange.
// Complexity: O(1).
func (f *Field) Flip(slice, site int) error {
	off, err := f.offset(slice, site)
	if err != nil {
		return err
	}
	f.data[off] = -f.data[off]

	return nil
}

// Value returns the entry at (slice, site).
// Errors: ErrIndexOutOfRange.
// Complexity: O(1).
func (f *Field) Value(slice, site int) (int8, error) {
	off, err := f.offset(slice, site)
	if err != nil {
		return 0, err
	}

	return f.data[off], nil
}

// Row returns a copy of the values of one slice.
// Errors: ErrIndexOutOfRange.
// Complexity: O(N).
func (f *Field) Row(slice int) ([]int8, error) {
	if slice < 0 || slice >= f.slices {
		return nil, fmt.Errorf("slice %d: %w", slice, ErrIndexOutOfRange)
	}
	out := make([]int8, f.sites)
	copy(out, f.data[slice*f.sites:(slice+1)*f.sites])

	return out, nil
}

// Rows returns a deep copy as [slice][site], the inverse of FromRows.
// Complexity: O(L·N).
func (f *Field) Rows() [][]int8 {
	out := make([][]int8, f.slices)
	for l := range out {
		out[l] = make([]int8, f.sites)
		copy(out[l], f.data[l*f.sites:(l+1)*f.sites])
	}

	return out
}

// Clone returns an independent copy.
func (f *Field) Clone() *Field {
	cp := make([]int8, len(f.data))
	copy(cp, f.data)

	return &Field{slices: f.slices, sites: f.sites, data: cp}
}

// Equal reports whether two fields hold identical values.
func (f *Field) Equal(o *Field) bool {
	if o == nil || f.slices != o.slices || f.sites != o.sites {
		return false
	}
	for i := range f.data {
		if f.data[i] != o.data[i] {
			return false
		}
	}

	return true
}

// Magnetization returns Σ s / (L·N), a cheap diagnostic of field polarization.
func (f *Field) Magnetization() float64 {
	var sum int
	for _, v := range f.data {
		sum += int(v)
	}

	return float64(sum) / float64(len(f.data))
}

func (f *Field) offset(slice, site int) (int, error) {
	if slice < 0 || slice >= f.slices || site < 0 || site >= f.sites {
		return 0, fmt.Errorf("(%d,%d) in %dx%d: %w", slice, site, f.slices, f.sites, ErrIndexOutOfRange)
	}

	return slice*f.sites + site, nil
}

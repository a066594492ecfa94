package dqmc

import (
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
)

// fieldChain derives slice propagators from the walker's current field.
type fieldChain struct{ w *Walker }

func (w *Walker) chain() fieldChain { return fieldChain{w: w} }

func (c fieldChain) Len() int { return c.w.b.Slices() }

func (c fieldChain) Propagator(s lattice.Spin, slice int) (*matrix.Dense, error) {
	row, err := c.w.field.Row(slice)
	if err != nil {
		return nil, err
	}

	return c.w.b.Build(s, row)
}

// Package green maintains the equal-time Green's function of one walker.
//
// Each spin has a Channel: a stored dense matrix G plus a deferred buffer of
// k ≤ blockSize column pairs (u_c, w_c) such that the true Green's function is
//
//	G_true = G + Σ_c u_c·w_cᵀ
//
// A Sherman–Morrison update for an accepted flip at site j is enqueued in
// O(n·k) and all k corrections are applied together by one rank-k update.
// A blockSize of 1 degenerates to the plain sequential update.
package green

import (
	"fmt"

	"github.com/katalvlaran/dqmc/matrix"
)

// Channel is the Green's-function state of one spin species.
type Channel struct {
	n, block int
	g        *matrix.Dense
	next     *matrix.Dense // flush target, swapped with g on success
	u, w     [][]float64   // buffered columns, len == k
}

// NewChannel takes ownership of g (n×n) and allocates a buffer of blockSize columns.
// Errors: matrix.ErrNilMatrix, matrix.ErrDimensionMismatch, ErrBadBlockSize.
func NewChannel(g *matrix.Dense, blockSize int) (*Channel, error) {
	if err := matrix.ValidateSquareNonNil(g); err != nil {
		return nil, err
	}
	if blockSize < 1 {
		return nil, fmt.Errorf("block size %d: %w", blockSize, ErrBadBlockSize)
	}

	return &Channel{
		n:     g.Rows(),
		block: blockSize,
		g:     g,
		u:     make([][]float64, 0, blockSize),
		w:     make([][]float64, 0, blockSize),
	}, nil
}

// Sites returns n.
func (c *Channel) Sites() int { return c.n }

// Pending returns the number of buffered corrections k.
func (c *Channel) Pending() int { return len(c.u) }

// BlockSize returns the buffer capacity.
func (c *Channel) BlockSize() int { return c.block }

// UpdateRank1 enqueues G_true ← G_true + gamma·G_true[:,j]·(G_true[j,:] − e_jᵀ).
//
// Implementation:
//   - Stage 1: x = G[:,j] + Σ_c u_c·w_c[j]   (true column j)
//   - Stage 2: y = G[j,:] + Σ_c u_c[j]·w_c    (true row j), y[j] −= 1, y *= gamma
//   - Stage 3: append (x, y); flush when the buffer reaches blockSize.
//
// Errors: ErrSite, numeric errors from an automatic flush.
// Complexity: O(n·k) per call plus O(n²·blockSize) once per blockSize calls.
func (c *Channel) UpdateRank1(site int, gamma float64) error {
	if site < 0 || site >= c.n {
		return fmt.Errorf("site %d of %d: %w", site, c.n, ErrSite)
	}
	if len(c.u) >= c.block {
		panic(panicOverflow)
	}
	x, err := c.g.Col(site)
	if err != nil {
		return err
	}
	y, err := c.g.Row(site)
	if err != nil {
		return err
	}
	for k := range c.u {
		wj, uj := c.w[k][site], c.u[k][site]
		for a := 0; a < c.n; a++ {
			x[a] += c.u[k][a] * wj
			y[a] += uj * c.w[k][a]
		}
	}
	y[site] -= 1
	for a := range y {
		y[a] *= gamma
	}
	c.u = append(c.u, x)
	c.w = append(c.w, y)

	return c.Flush(false)
}

// Flush applies the buffered corrections with one rank-k update.
// With forced == false it only acts when the buffer is full.
// On error the stored matrix and the buffer are left as they were.
// Errors: matrix.ErrNaNInf when the result is not finite.
// Complexity: O(n²·k).
func (c *Channel) Flush(forced bool) error {
	k := len(c.u)
	if k == 0 || (!forced && k < c.block) {
		return nil
	}
	uf := make([]float64, c.n*k)
	wf := make([]float64, c.n*k)
	for col := 0; col < k; col++ {
		for a := 0; a < c.n; a++ {
			uf[a*k+col] = c.u[col][a]
			wf[a*k+col] = c.w[col][a]
		}
	}

	um, err := matrix.NewDenseFrom(c.n, k, uf)
	if err != nil {
		return err
	}
	wm, err := matrix.NewDenseFrom(c.n, k, wf)
	if err != nil {
		return err
	}
	if c.next == nil {
		if c.next, err = matrix.NewDense(c.n, c.n); err != nil {
			return err
		}
	}
	if err = c.next.CopyFrom(c.g); err != nil {
		return err
	}
	if err = matrix.RankUpdate(c.next, um, wm, k); err != nil {
		return err
	}
	c.g, c.next = c.next, c.g
	c.u, c.w = c.u[:0], c.w[:0]

	return nil
}

// Diagonal returns G_true[j,j] without flushing.
// Errors: ErrSite.
// Complexity: O(k).
func (c *Channel) Diagonal(site int) (float64, error) {
	if site < 0 || site >= c.n {
		return 0, fmt.Errorf("site %d of %d: %w", site, c.n, ErrSite)
	}
	v, err := c.g.At(site, site)
	if err != nil {
		return 0, err
	}
	for k := range c.u {
		v += c.u[k][site] * c.w[k][site]
	}

	return v, nil
}

// Matrix returns a copy of the stored matrix; the buffer must be empty.
// Errors: ErrPendingUpdates.
func (c *Channel) Matrix() (*matrix.Dense, error) {
	if len(c.u) > 0 {
		return nil, ErrPendingUpdates
	}

	return c.g.Copy(), nil
}

// replace swaps in a new stored matrix; the buffer must be empty.
func (c *Channel) replace(g *matrix.Dense) error {
	if len(c.u) > 0 {
		return ErrPendingUpdates
	}
	if g == nil {
		return matrix.ErrNilMatrix
	}
	if g.Rows() != c.n || g.Cols() != c.n {
		return fmt.Errorf("replace %dx%d into %d: %w", g.Rows(), g.Cols(), c.n, matrix.ErrDimensionMismatch)
	}
	c.g = g

	return nil
}

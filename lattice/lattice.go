package lattice

import (
	"fmt"
	"math"

	"github.com/katalvlaran/dqmc/matrix"
)

// NewRectangular constructs a periodic or open Width×Height lattice with
// uniform hopping for both spins.
// Returns ErrEmptyLattice if width or height < 1, ErrInvalidHopping if an
// amplitude is not finite.
// Algorithmic complexity: O(N·d) to fill hopping plus O(N²) allocation, N = W×H.
func NewRectangular(width, height int, opts Options) (*Geometry, error) {
	if width < 1 || height < 1 {
		return nil, ErrEmptyLattice
	}
	if !finite(opts.Hopping) || !finite(opts.DiagonalHopping) {
		return nil, fmt.Errorf("amplitude t=%g t'=%g: %w", opts.Hopping, opts.DiagonalHopping, ErrInvalidHopping)
	}
	// Precompute neighbor offsets based on connectivity
	offsets := [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	if opts.Conn == Conn8 {
		offsets = [][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
	}
	g := &Geometry{
		Width:           width,
		Height:          height,
		Conn:            opts.Conn,
		Periodic:        opts.Periodic,
		neighborOffsets: offsets,
	}

	n := width * height
	t, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			u := g.Index(x, y)
			for _, d := range offsets {
				nx, ny, ok := g.neighbor(x, y, d)
				if !ok {
					continue
				}
				v := g.Index(nx, ny)
				if v == u {
					continue // a wrapped axis of length 1 has no bond
				}
				amp := opts.Hopping
				if d[0] != 0 && d[1] != 0 {
					amp = opts.DiagonalHopping
				}
				// Set rather than add: on a wrapped axis of length 2 both
				// directions reach the same site and describe one bond.
				_ = t.Set(u, v, amp)
			}
		}
	}
	g.hopping = [2]*matrix.Dense{t, t.Copy()}
	g.sublattice = colour(g.hopping)

	return g, nil
}

// NewChain constructs a one-dimensional lattice of n sites (Height = 1).
func NewChain(n int, opts Options) (*Geometry, error) {
	opts.Conn = Conn4 // diagonals do not exist on a chain

	return NewRectangular(n, 1, opts)
}

// FromHopping wraps explicit per-spin hopping matrices (T[i][j] = amplitude i↔j).
// Both must be non-nil, square, of equal size, symmetric within matrix.DefaultEpsilon
// and finite. The matrices are copied.
// Complexity: O(N²).
func FromHopping(up, down matrix.Matrix) (*Geometry, error) {
	var hop [2]*matrix.Dense
	for idx, m := range []matrix.Matrix{up, down} {
		if err := matrix.ValidateSymmetric(m, matrix.DefaultEpsilon); err != nil {
			return nil, fmt.Errorf("%s hopping: %v: %w", Spins[idx], err, ErrInvalidHopping)
		}
		n := m.Rows()
		d, err := matrix.NewDense(n, n)
		if err != nil {
			return nil, fmt.Errorf("%s hopping: %v: %w", Spins[idx], err, ErrInvalidHopping)
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v, _ := m.At(i, j)
				if err = d.Set(i, j, v); err != nil {
					return nil, fmt.Errorf("%s hopping: %v: %w", Spins[idx], err, ErrInvalidHopping)
				}
			}
		}
		hop[idx] = d
	}
	if hop[0].Rows() != hop[1].Rows() {
		return nil, fmt.Errorf("spin sizes %d vs %d: %w", hop[0].Rows(), hop[1].Rows(), ErrInvalidHopping)
	}

	return &Geometry{
		Width:      hop[0].Rows(),
		Height:     1,
		Conn:       Conn4,
		hopping:    hop,
		sublattice: colour(hop),
	}, nil
}

// Sites returns the number of lattice sites N.
// Complexity: O(1).
func (g *Geometry) Sites() int { return g.hopping[0].Rows() }

// Hopping returns a copy of the hopping matrix of spin s.
// Complexity: O(N²).
func (g *Geometry) Hopping(s Spin) *matrix.Dense {
	return g.hopping[s].Copy()
}

// InBounds reports whether (x,y) lies within the lattice boundaries.
// Complexity: O(1).
func (g *Geometry) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// NeighborOffsets returns the precomputed neighbor offsets slice.
// Complexity: O(1).
func (g *Geometry) NeighborOffsets() [][2]int {
	return g.neighborOffsets
}

// Index maps (x,y) to a row-major index: y*Width + x.
// Complexity: O(1).
func (g *Geometry) Index(x, y int) int {
	return y*g.Width + x
}

// Coordinate converts a row-major index back to (x,y).
// Complexity: O(1).
func (g *Geometry) Coordinate(idx int) (x, y int) {
	return idx % g.Width, idx / g.Width
}

// Bipartite reports whether the hopping graph splits into two sublattices.
func (g *Geometry) Bipartite() bool { return g.sublattice != nil }

// Sublattice returns the staggering sign (+1 or −1) of site i.
// Non-bipartite lattices return +1 for every site.
// Errors: ErrSiteIndex.
func (g *Geometry) Sublattice(i int) (int8, error) {
	if i < 0 || i >= g.Sites() {
		return 0, fmt.Errorf("site %d: %w", i, ErrSiteIndex)
	}
	if g.sublattice == nil {
		return 1, nil
	}

	return g.sublattice[i], nil
}

// neighbor applies offset d to (x,y), wrapping when periodic.
func (g *Geometry) neighbor(x, y int, d [2]int) (int, int, bool) {
	nx, ny := x+d[0], y+d[1]
	if g.Periodic {
		nx = (nx + g.Width) % g.Width
		ny = (ny + g.Height) % g.Height
	}

	return nx, ny, g.InBounds(nx, ny)
}

// colour two-colours the union of the hopping graphs with a breadth-first
// search from every uncoloured site. It returns nil on an odd cycle.
// Complexity: O(N²).
func colour(hop [2]*matrix.Dense) []int8 {
	n := hop[0].Rows()
	signs := make([]int8, n)
	queue := make([]int, 0, n)
	for start := 0; start < n; start++ {
		if signs[start] != 0 {
			continue
		}
		signs[start] = 1
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for v := 0; v < n; v++ {
				if v == u || !bonded(hop, u, v) {
					continue
				}
				switch signs[v] {
				case 0:
					signs[v] = -signs[u]
					queue = append(queue, v)
				case signs[u]:
					return nil // odd cycle
				}
			}
		}
	}

	return signs
}

// bonded reports a non-zero amplitude between u and v for either spin.
func bonded(hop [2]*matrix.Dense, u, v int) bool {
	for _, h := range hop {
		if a, _ := h.At(u, v); a != 0 {
			return true
		}
	}

	return false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

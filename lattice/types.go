// Package lattice defines core types and options
// for the lattice subpackage of github.com/katalvlaran/dqmc.
package lattice

import (
	"github.com/katalvlaran/dqmc/matrix"
)

// Spin labels the two fermion species.
type Spin int

const (
	// Up is the spin-up species.
	Up Spin = iota
	// Down is the spin-down species.
	Down
)

// Spins lists both species in canonical order; loops over spins range over it.
var Spins = [2]Spin{Up, Down}

// String implements fmt.Stringer.
func (s Spin) String() string {
	if s == Up {
		return "up"
	}

	return "down"
}

// Connectivity selects hopping range: orthogonal (Conn4) or including diagonals (Conn8).
type Connectivity int

const (
	// Conn4 uses nearest-neighbor hopping: N, E, S, W.
	Conn4 Connectivity = iota
	// Conn8 adds next-nearest (diagonal) hopping: NE, SE, SW, NW.
	Conn8
)

// Options contains tunable parameters for lattice construction.
type Options struct {
	// Hopping is the nearest-neighbor amplitude t (same for both spins).
	Hopping float64
	// DiagonalHopping is the diagonal amplitude t' used under Conn8.
	DiagonalHopping float64
	// Conn chooses nearest-only or nearest plus diagonal hopping.
	Conn Connectivity
	// Periodic wraps both directions when true.
	Periodic bool
}

// DefaultOptions returns Options with default settings:
// Hopping=1, DiagonalHopping=0, Conn=Conn4, Periodic=true.
func DefaultOptions() Options {
	return Options{
		Hopping:  1,
		Conn:     Conn4,
		Periodic: true,
	}
}

// Geometry is the site/hopping description of a lattice. It is immutable once built.
// Width and Height define dimensions (Height = 1 for chains and for FromHopping).
// hopping holds T_σ with T[i][j] = amplitude for i≠j; the kinetic operator is −T − μ.
// sublattice holds ±1 per site when the hopping graph is bipartite, nil otherwise.
type Geometry struct {
	Width, Height   int
	Conn            Connectivity
	Periodic        bool
	neighborOffsets [][2]int
	hopping         [2]*matrix.Dense
	sublattice      []int8
}

package lattice

import "errors"

var (
	// ErrEmptyLattice indicates a lattice with no sites (width or height < 1).
	ErrEmptyLattice = errors.New("lattice: lattice must have at least one site")
	// ErrInvalidHopping indicates a hopping matrix that is nil, not square,
	// not symmetric, not finite, or whose size differs between spins.
	ErrInvalidHopping = errors.New("lattice: invalid hopping matrix")
	// ErrSiteIndex indicates a site index outside [0, Sites()).
	ErrSiteIndex = errors.New("lattice: site index out of range")
)

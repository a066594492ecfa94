// Package lattice builds the immutable geometry consumed by the DQMC engine:
// site count, per-spin hopping matrices and bipartite sublattice signs.
//
// It supports:
//
//   - Rectangular Width×Height lattices (a chain is Height = 1)
//   - Nearest-neighbor (Conn4) or nearest plus diagonal (Conn8) hopping
//   - Periodic or open boundaries
//   - Arbitrary symmetric hopping matrices via FromHopping
//
// Sites are numbered row-major: index = y*Width + x.
// A Geometry is immutable once built; accessors return copies.
package lattice

package propagator

import "errors"

// ErrInvalidParameter indicates a model parameter or geometry input that
// cannot produce a valid propagator (non-positive β or slice count,
// non-finite couplings, hopping size differing from the declared site count,
// or a field row of the wrong length).
var ErrInvalidParameter = errors.New("propagator: invalid parameter")

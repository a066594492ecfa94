package hsfield

import "errors"

var (
	// ErrIndexOutOfRange indicates a (slice, site) pair outside the field.
	ErrIndexOutOfRange = errors.New("hsfield: index out of range")
	// ErrBadShape indicates non-positive dimensions, ragged restore data,
	// or an entry that is not ±1.
	ErrBadShape = errors.New("hsfield: invalid field shape or value")
)

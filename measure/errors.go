package measure

import "errors"

var (
	// ErrBadBin indicates a measurement whose bin is outside [0, Bins).
	ErrBadBin = errors.New("measure: bin out of range")
	// ErrShape indicates Green's functions of the wrong size.
	ErrShape = errors.New("measure: Green's function shape mismatch")
	// ErrIncompatible indicates Merge of accumulators with different layouts.
	ErrIncompatible = errors.New("measure: incompatible accumulators")
	// ErrNoData indicates an estimate without any usable bin.
	ErrNoData = errors.New("measure: no data")
	// ErrUnknownObservable indicates an observable index outside the table.
	ErrUnknownObservable = errors.New("measure: unknown observable")
)

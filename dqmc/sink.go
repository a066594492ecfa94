package dqmc

import "github.com/katalvlaran/dqmc/matrix"

// Measurement is one measurement event. Up and Down are private copies;
// sinks may keep them but must not expect later updates.
type Measurement struct {
	Up, Down *matrix.Dense
	Sign     float64 // sgn det(I+G_↑)·sgn det(I+G_↓); 0 when either is singular
	Bin      int
	Slice    int
	Sweep    int
}

// Sink receives measurement events in order. An error aborts the sweep.
type Sink interface {
	Measure(m Measurement) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(m Measurement) error

// Measure calls f(m).
func (f SinkFunc) Measure(m Measurement) error { return f(m) }

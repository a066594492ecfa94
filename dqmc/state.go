package dqmc

// State is the driver state observed between and during sweeps.
type State int

const (
	Idle State = iota
	SweepingSlice
	Recomputing
	Measuring
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SweepingSlice:
		return "sweeping"
	case Recomputing:
		return "recomputing"
	case Measuring:
		return "measuring"
	default:
		return "unknown"
	}
}

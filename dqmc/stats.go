package dqmc

// Stats are the counters of one walker.
type Stats struct {
	Sweeps       int
	Proposals    int
	Accepted     int
	NonFinite    int
	Recomputes   int
	Divergences  int
	Measurements int
	MaxDiff      float64 // largest recompute deviation seen
	LastDiff     float64
}

// Acceptance returns Accepted/Proposals, or 0 before the first proposal.
func (s Stats) Acceptance() float64 {
	if s.Proposals == 0 {
		return 0
	}

	return float64(s.Accepted) / float64(s.Proposals)
}

// Add sums counters; MaxDiff takes the maximum and LastDiff the right operand.
func (s Stats) Add(o Stats) Stats {
	s.Sweeps += o.Sweeps
	s.Proposals += o.Proposals
	s.Accepted += o.Accepted
	s.NonFinite += o.NonFinite
	s.Recomputes += o.Recomputes
	s.Divergences += o.Divergences
	s.Measurements += o.Measurements
	s.MaxDiff = max(s.MaxDiff, o.MaxDiff)
	s.LastDiff = o.LastDiff

	return s
}

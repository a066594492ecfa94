package propagator

import (
	"fmt"
	"math"

	"github.com/katalvlaran/dqmc/lattice"
)

// Params are the model and discretization parameters of a Hubbard run.
// Mu is indexed by lattice.Spin; both entries are equal for the usual
// spin-symmetric chemical potential.
type Params struct {
	Sites  int        // declared site count; must match the geometry
	Beta   float64    // inverse temperature β > 0
	Slices int        // number of imaginary-time slices L ≥ 1
	U      float64    // on-site interaction; U < 0 is attractive
	Mu     [2]float64 // chemical potential per spin
}

// Dtau returns the imaginary-time step β/L.
func (p Params) Dtau() float64 { return p.Beta / float64(p.Slices) }

// MuEff returns μ_σ − U/2, the chemical potential shifted by the
// particle–hole symmetric form of the interaction.
func (p Params) MuEff(s lattice.Spin) float64 { return p.Mu[s] - p.U/2 }

// Validate checks ranges and finiteness.
// Errors: ErrInvalidParameter naming the offending field.
func (p Params) Validate() error {
	switch {
	case p.Sites < 1:
		return fmt.Errorf("sites=%d: %w", p.Sites, ErrInvalidParameter)
	case p.Slices < 1:
		return fmt.Errorf("slices=%d: %w", p.Slices, ErrInvalidParameter)
	case !(p.Beta > 0) || math.IsInf(p.Beta, 0):
		return fmt.Errorf("beta=%g: %w", p.Beta, ErrInvalidParameter)
	case math.IsNaN(p.U) || math.IsInf(p.U, 0):
		return fmt.Errorf("U=%g: %w", p.U, ErrInvalidParameter)
	}
	for _, s := range lattice.Spins {
		if math.IsNaN(p.Mu[s]) || math.IsInf(p.Mu[s], 0) {
			return fmt.Errorf("mu[%s]=%g: %w", s, p.Mu[s], ErrInvalidParameter)
		}
	}

	return nil
}

// Lambda returns the discrete Hubbard–Stratonovich coupling λ with
// cosh λ = exp(dτ·|U|/2). U = 0 gives λ = 0.
func (p Params) Lambda() float64 {
	return math.Acosh(math.Exp(p.Dtau() * math.Abs(p.U) / 2))
}

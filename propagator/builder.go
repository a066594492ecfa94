// Package propagator builds the single-slice propagators of the discrete
// Hubbard–Stratonovich decoupling:
//
//	B_σ(l) = diag(exp(c_σ·s_l)) · exp(dτ·(T_σ + μ_eff,σ·I))
//
// with c_↑ = λ, c_↓ = −λ for U ≥ 0 (the two spin channels see opposite
// fields) and c_↑ = c_↓ = λ for U < 0 (both channels see the same field).
// Kinetic exponentials are computed once; slice propagators are derived on
// demand from a field row and never cached.
package propagator

import (
	"fmt"
	"math"

	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Builder is the immutable propagator factory of one model.
// It is safe for concurrent use by independent walkers.
type Builder struct {
	geom     *lattice.Geometry
	params   Params
	lambda   float64
	coupling [2]float64
	expK     [2]*matrix.Dense // exp(dτ(T+μ_eff))
	expKInv  [2]*matrix.Dense // exp(−dτ(T+μ_eff))
	log      logrus.FieldLogger
}

// New validates params against geom and precomputes the kinetic exponentials.
//
// Implementation:
//   - Stage 1: validate params; require geom.Sites() == params.Sites.
//   - Stage 2: λ from dτ and |U|; per-spin couplings by the sign of U.
//   - Stage 3: exp(±dτ(T_σ + μ_eff,σ I)) through gonum's Padé exponential.
//
// Errors: ErrInvalidParameter.
// Complexity: O(N³) per spin.
func New(ctx *simctx.Context, geom *lattice.Geometry, params Params) (*Builder, error) {
	if ctx == nil || geom == nil {
		return nil, fmt.Errorf("nil context or geometry: %w", ErrInvalidParameter)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if geom.Sites() != params.Sites {
		return nil, fmt.Errorf("hopping is %dx%d, declared %d sites: %w",
			geom.Sites(), geom.Sites(), params.Sites, ErrInvalidParameter)
	}

	b := &Builder{
		geom:   geom,
		params: params,
		lambda: params.Lambda(),
		log:    ctx.Logger.WithField("component", "propagator"),
	}
	b.coupling = [2]float64{b.lambda, -b.lambda}
	if params.U < 0 {
		b.coupling[lattice.Down] = b.lambda
	}

	dtau := params.Dtau()
	for _, s := range lattice.Spins {
		up, err := kineticExp(geom.Hopping(s), params.MuEff(s), dtau)
		if err != nil {
			return nil, fmt.Errorf("spin %s: %w", s, err)
		}
		down, err := kineticExp(geom.Hopping(s), params.MuEff(s), -dtau)
		if err != nil {
			return nil, fmt.Errorf("spin %s: %w", s, err)
		}
		b.expK[s], b.expKInv[s] = up, down
	}
	b.log.WithFields(logrus.Fields{
		"sites": params.Sites, "slices": params.Slices, "dtau": dtau, "lambda": b.lambda, "U": params.U,
	}).Debug("propagator ready")

	return b, nil
}

// kineticExp returns exp(scale·(T + mu·I)).
func kineticExp(t *matrix.Dense, mu, scale float64) (*matrix.Dense, error) {
	n := t.Rows()
	a := mat.NewDense(n, n, t.Flat())
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+mu)
	}
	a.Scale(scale, a)

	var e mat.Dense
	e.Exp(a)
	out, err := matrix.NewDenseFrom(n, n, denseData(&e))
	if err != nil {
		return nil, fmt.Errorf("kinetic exponential: %v: %w", err, ErrInvalidParameter)
	}

	return out, nil
}

// denseData copies a gonum matrix into row-major order regardless of stride.
func denseData(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}

	return out
}

// Params returns the validated parameters.
func (b *Builder) Params() Params { return b.params }

// Geometry returns the lattice the builder was made for.
func (b *Builder) Geometry() *lattice.Geometry { return b.geom }

// Sites returns N.
func (b *Builder) Sites() int { return b.params.Sites }

// Slices returns L.
func (b *Builder) Slices() int { return b.params.Slices }

// Lambda returns the HS coupling λ.
func (b *Builder) Lambda() float64 { return b.lambda }

// Coupling returns c_σ, the signed coupling seen by spin s.
func (b *Builder) Coupling(s lattice.Spin) float64 { return b.coupling[s] }

// Attractive reports U < 0, where both spins share one coupling sign.
func (b *Builder) Attractive() bool { return b.params.U < 0 }

// Interaction returns the diagonal exp(c_σ·s_i) for one field row.
// Errors: ErrInvalidParameter on a row of the wrong length.
// Complexity: O(N).
func (b *Builder) Interaction(s lattice.Spin, row []int8) ([]float64, error) {
	if len(row) != b.params.Sites {
		return nil, fmt.Errorf("field row has %d sites, want %d: %w", len(row), b.params.Sites, ErrInvalidParameter)
	}
	c := b.coupling[s]
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = math.Exp(c * float64(v))
	}

	return out, nil
}

// Build returns B_σ(l) = diag(exp(c_σ·row))·exp(dτ(T_σ+μ_eff)).
// Errors: ErrInvalidParameter.
// Complexity: O(N²).
func (b *Builder) Build(s lattice.Spin, row []int8) (*matrix.Dense, error) {
	v, err := b.Interaction(s, row)
	if err != nil {
		return nil, err
	}

	return matrix.ScaleRows(v, b.expK[s])
}

// Wrap advances an equal-time Green's function by one slice:
// G ← B_σ(l)·G·B_σ(l)⁻¹, with B⁻¹ = exp(−dτ(T+μ_eff))·diag(exp(−c_σ·row)).
// Errors: ErrInvalidParameter, matrix shape errors.
// Complexity: O(N³).
func (b *Builder) Wrap(s lattice.Spin, row []int8, g matrix.Matrix) (*matrix.Dense, error) {
	v, err := b.Interaction(s, row)
	if err != nil {
		return nil, err
	}
	inv := make([]float64, len(v))
	for i := range v {
		inv[i] = 1 / v[i]
	}
	left, err := matrix.Mul(b.expK[s], g)
	if err != nil {
		return nil, err
	}
	both, err := matrix.Mul(left, b.expKInv[s])
	if err != nil {
		return nil, err
	}
	scaled, err := matrix.ScaleRows(v, both)
	if err != nil {
		return nil, err
	}

	return matrix.ScaleCols(scaled, inv)
}

// DeltaV returns the change of the interaction exponent of spin s when the
// field value old is flipped to −old: −2·c_σ·old.
func (b *Builder) DeltaV(s lattice.Spin, old int8) float64 {
	return -2 * b.coupling[s] * float64(old)
}

// BosonRatio returns the field-only weight ratio of flipping old → −old.
// The attractive decoupling carries a prefactor exp(−λ·s) per site, whose
// ratio is exp(2λ·old); the repulsive decoupling has none.
func (b *Builder) BosonRatio(old int8) float64 {
	if !b.Attractive() {
		return 1
	}

	return math.Exp(2 * b.lambda * float64(old))
}

// Kinetic returns a copy of exp(dτ(T_σ+μ_eff,σ)).
func (b *Builder) Kinetic(s lattice.Spin) *matrix.Dense { return b.expK[s].Copy() }

// FreeGreen returns the non-interacting equal-time Green's function
// (I + exp(β(T_σ+μ_eff,σ)))⁻¹ from the eigen-decomposition of the
// kinetic operator. With U = 0 this is the exact Green's function of
// every field configuration.
// Errors: matrix eigen errors.
// Complexity: O(N³).
func (b *Builder) FreeGreen(s lattice.Spin) (*matrix.Dense, error) {
	h, err := matrix.AddIdentity(b.geom.Hopping(s), b.params.MuEff(s))
	if err != nil {
		return nil, err
	}
	eps, vecs, err := matrix.EigenSym(h)
	if err != nil {
		return nil, fmt.Errorf("free Green's function: %w", err)
	}
	occ := make([]float64, len(eps))
	for k, e := range eps {
		occ[k] = 1 / (1 + math.Exp(b.params.Beta*e)) // Inf for large βε yields 0
	}
	scaled, err := matrix.ScaleCols(vecs, occ)
	if err != nil {
		return nil, err
	}
	vt, err := matrix.Transpose(vecs)
	if err != nil {
		return nil, err
	}

	return matrix.Mul(scaled, vt)
}

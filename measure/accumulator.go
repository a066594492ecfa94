package measure

import (
	"fmt"
	"math"

	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/matrix"
	"github.com/katalvlaran/dqmc/propagator"
	"gonum.org/v1/gonum/stat"
)

// Accumulator is a binned, sign-weighted sink. It is not safe for
// concurrent use; give every walker its own and Merge afterwards.
type Accumulator struct {
	sites int
	u     float64
	hop   [2]*matrix.Dense
	eps   []float64

	bins    int
	sum     [numObservables][]float64 // Σ sign·O per bin; AvgSign holds Σ sign
	samples []int
}

var _ dqmc.Sink = (*Accumulator)(nil)

// New returns an empty accumulator for the model of b with bins bins.
// Errors: ErrBadBin for bins < 1.
func New(b *propagator.Builder, bins int) (*Accumulator, error) {
	if bins < 1 {
		return nil, fmt.Errorf("bins=%d: %w", bins, ErrBadBin)
	}
	geom := b.Geometry()
	a := &Accumulator{
		sites:   b.Sites(),
		u:       b.Params().U,
		bins:    bins,
		samples: make([]int, bins),
		eps:     make([]float64, b.Sites()),
	}
	for _, s := range lattice.Spins {
		a.hop[s] = geom.Hopping(s)
	}
	for i := range a.eps {
		e, err := geom.Sublattice(i)
		if err != nil {
			return nil, err
		}
		a.eps[i] = float64(e)
	}
	for o := range a.sum {
		a.sum[o] = make([]float64, bins)
	}

	return a, nil
}

// Bins returns the number of bins.
func (a *Accumulator) Bins() int { return a.bins }

// Samples returns the number of measurements recorded in bin.
func (a *Accumulator) Samples(bin int) int {
	if bin < 0 || bin >= a.bins {
		return 0
	}

	return a.samples[bin]
}

// Measure records one event. The matrices are only read.
// Errors: ErrBadBin, ErrShape.
// Complexity: O(N²).
func (a *Accumulator) Measure(m dqmc.Measurement) error {
	if m.Bin < 0 || m.Bin >= a.bins {
		return fmt.Errorf("bin %d of %d: %w", m.Bin, a.bins, ErrBadBin)
	}
	for _, g := range []*matrix.Dense{m.Up, m.Down} {
		if g == nil || g.Rows() != a.sites || g.Cols() != a.sites {
			return ErrShape
		}
	}
	vals := a.observe([2]*matrix.Dense{m.Up, m.Down})
	for o := Observable(0); o < AvgSign; o++ {
		a.sum[o][m.Bin] += m.Sign * vals[o]
	}
	a.sum[AvgSign][m.Bin] += m.Sign
	a.samples[m.Bin]++

	return nil
}

// observe evaluates every observable except AvgSign for one configuration.
func (a *Accumulator) observe(g [2]*matrix.Dense) [numObservables]float64 {
	var (
		out  [numObservables]float64
		n    = a.sites
		occ  [2][]float64
		nf   = float64(n)
		data [2][]float64
	)
	for _, s := range lattice.Spins {
		data[s] = g[s].Flat()
		occ[s] = make([]float64, n)
		for i := 0; i < n; i++ {
			occ[s][i] = 1 - data[s][i*n+i]
		}
	}

	var up, dn, dbl, pot, kin float64
	for i := 0; i < n; i++ {
		nu, nd := occ[lattice.Up][i], occ[lattice.Down][i]
		up += nu
		dn += nd
		dbl += nu * nd
		pot += (nu - 0.5) * (nd - 0.5)
	}
	for _, s := range lattice.Spins {
		hop := a.hop[s].Flat()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				t := hop[i*n+j]
				if t == 0 {
					continue
				}
				cij := -data[s][j*n+i]
				if i == j {
					cij += 1
				}
				kin -= t * cij
			}
		}
	}

	var fm, af float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			mm := -occ[lattice.Up][i]*occ[lattice.Down][j] - occ[lattice.Down][i]*occ[lattice.Up][j]
			for _, s := range lattice.Spins {
				same := occ[s][i]*occ[s][j] - data[s][j*n+i]*data[s][i*n+j]
				if i == j {
					same += data[s][i*n+j]
				}
				mm += same
			}
			fm += mm
			af += a.eps[i] * a.eps[j] * mm
		}
	}

	out[UpOcc] = up / nf
	out[DnOcc] = dn / nf
	out[Density] = (up + dn) / nf
	out[DoubleOcc] = dbl / nf
	out[PotEnergy] = a.u * pot / nf
	out[KinEnergy] = kin / nf
	out[TotEnergy] = out[KinEnergy] + out[PotEnergy]
	out[ZZFerro] = fm / nf
	out[ZZAntiferro] = af / nf

	return out
}

// Merge adds the sums of o into a.
// Errors: ErrIncompatible when sites or bins differ.
func (a *Accumulator) Merge(o *Accumulator) error {
	for b := 0; b < a.bins; b++ {
		if err := a.MergeBin(o, b); err != nil {
			return err
		}
	}

	return nil
}

// MergeBin adds bin of o into the same bin of a.
// Errors: ErrIncompatible, ErrBadBin.
func (a *Accumulator) MergeBin(o *Accumulator, bin int) error {
	if o == nil || o.sites != a.sites || o.bins != a.bins {
		return ErrIncompatible
	}
	if bin < 0 || bin >= a.bins {
		return fmt.Errorf("bin %d of %d: %w", bin, a.bins, ErrBadBin)
	}
	for k := range a.sum {
		a.sum[k][bin] += o.sum[k][bin]
	}
	a.samples[bin] += o.samples[bin]

	return nil
}

// BinAverage returns the sign-weighted average of obs in bin; ok is false
// for an empty bin or a vanishing sign sum.
func (a *Accumulator) BinAverage(obs Observable, bin int) (avg float64, ok bool) {
	if !obs.valid() || bin < 0 || bin >= a.bins || a.samples[bin] == 0 {
		return 0, false
	}
	if obs == AvgSign {
		return a.sum[AvgSign][bin] / float64(a.samples[bin]), true
	}
	den := a.sum[AvgSign][bin]
	if den == 0 {
		return 0, false
	}

	return a.sum[obs][bin] / den, true
}

// Estimate returns the mean of the bin averages of obs and their standard
// error. With a single usable bin the error is NaN.
// Errors: ErrUnknownObservable, ErrNoData.
func (a *Accumulator) Estimate(obs Observable) (mean, stderr float64, err error) {
	if !obs.valid() {
		return 0, 0, fmt.Errorf("%d: %w", obs, ErrUnknownObservable)
	}
	avgs := make([]float64, 0, a.bins)
	for b := 0; b < a.bins; b++ {
		if v, ok := a.BinAverage(obs, b); ok {
			avgs = append(avgs, v)
		}
	}
	switch len(avgs) {
	case 0:
		return 0, 0, fmt.Errorf("%s: %w", obs, ErrNoData)
	case 1:
		return avgs[0], math.NaN(), nil
	}
	mean, std := stat.MeanStdDev(avgs, nil)

	return mean, std / math.Sqrt(float64(len(avgs))), nil
}

// Result is one row of Results.
type Result struct {
	Name   string
	Mean   float64
	StdErr float64
}

// Results estimates every observable with data, in table order.
func (a *Accumulator) Results() []Result {
	out := make([]Result, 0, numObservables)
	for _, o := range Observables() {
		mean, se, err := a.Estimate(o)
		if err != nil {
			continue
		}
		out = append(out, Result{Name: o.String(), Mean: mean, StdErr: se})
	}

	return out
}

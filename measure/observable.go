package measure

// Observable indexes the scalar measurements.
type Observable int

const (
	UpOcc       Observable = iota // ⟨n_↑⟩ per site
	DnOcc                         // ⟨n_↓⟩ per site
	Density                       // ⟨n_↑ + n_↓⟩ per site
	DoubleOcc                     // ⟨n_↑·n_↓⟩ per site
	PotEnergy                     // U·⟨(n_↑ − ½)(n_↓ − ½)⟩ per site
	KinEnergy                     // −Σ_σ Σ_ij T_ij ⟨c†_i c_j⟩ / N
	TotEnergy                     // KinEnergy + PotEnergy
	ZZFerro                       // Σ_ij ⟨m_i m_j⟩ / N, m = n_↑ − n_↓
	ZZAntiferro                   // Σ_ij ε_i ε_j ⟨m_i m_j⟩ / N with sublattice signs ε
	AvgSign                       // ⟨sign⟩

	numObservables
)

var observableNames = [numObservables]string{
	"up_occupancy", "down_occupancy", "density", "double_occupancy",
	"potential_energy", "kinetic_energy", "total_energy",
	"zz_ferro_structure", "zz_antiferro_structure", "average_sign",
}

// Observables lists every observable in table order.
func Observables() []Observable {
	out := make([]Observable, numObservables)
	for i := range out {
		out[i] = Observable(i)
	}

	return out
}

func (o Observable) String() string {
	if o < 0 || o >= numObservables {
		return "unknown"
	}

	return observableNames[o]
}

func (o Observable) valid() bool { return o >= 0 && o < numObservables }

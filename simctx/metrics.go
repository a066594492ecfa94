package simctx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Proposal outcome labels.
const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultNonFinite = "nonfinite"
)

// Metrics groups the engine's prometheus collectors, registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	// Proposals counts single-site flip proposals by result.
	Proposals *prometheus.CounterVec
	// Sweeps counts completed sweeps, split by measured ("true"/"false").
	Sweeps *prometheus.CounterVec
	// Recomputes counts stabilized recomputes.
	Recomputes prometheus.Counter
	// Divergences counts recomputes whose difference exceeded diff_lim.
	Divergences prometheus.Counter
	// Faults counts stability faults.
	Faults prometheus.Counter
	// RecomputeDiff observes max|G_incremental − G_recomputed| per recompute.
	RecomputeDiff prometheus.Histogram
	// Measurements counts measurement events handed to sinks.
	Measurements prometheus.Counter
}

// NewMetrics registers the collectors on reg.
// Panics if reg already holds them (promauto semantics), which signals a
// second Context sharing a registry by mistake.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Proposals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqmc_proposals_total",
			Help: "Single-site field flip proposals by result",
		}, []string{"result"}),
		Sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqmc_sweeps_total",
			Help: "Completed sweeps over all time slices",
		}, []string{"measured"}),
		Recomputes: f.NewCounter(prometheus.CounterOpts{
			Name: "dqmc_recomputes_total",
			Help: "Stabilized Green's function recomputes",
		}),
		Divergences: f.NewCounter(prometheus.CounterOpts{
			Name: "dqmc_divergences_total",
			Help: "Recomputes whose deviation exceeded diff_lim",
		}),
		Faults: f.NewCounter(prometheus.CounterOpts{
			Name: "dqmc_stability_faults_total",
			Help: "Runs aborted by a stability fault",
		}),
		RecomputeDiff: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dqmc_recompute_diff",
			Help:    "Max absolute deviation between incremental and recomputed Green's function",
			Buckets: prometheus.ExponentialBuckets(1e-14, 10, 12),
		}),
		Measurements: f.NewCounter(prometheus.CounterOpts{
			Name: "dqmc_measurements_total",
			Help: "Measurement events handed to sinks",
		}),
	}
}

// Gatherer exposes the registry for promhttp or tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Package config loads a DQMC run description from defaults, an optional
// YAML file, a .env file and DQMC_* environment variables, in increasing
// order of precedence, and maps it onto the phase-sequenced builders:
//
//	Run.Geometry() → Run.Params() → propagator.New → Run.Walker() → dqmc.NewWalker
//
// Environment keys are the upper-cased dotted keys with "." replaced by
// "_", e.g. DQMC_MODEL_U or DQMC_STABILIZATION_DIFF_LIM.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "DQMC"

// Lattice describes a rectangular lattice; Height 1 is a chain.
type Lattice struct {
	Width           int     `mapstructure:"width" yaml:"width"`
	Height          int     `mapstructure:"height" yaml:"height"`
	Hopping         float64 `mapstructure:"hopping" yaml:"hopping"`
	DiagonalHopping float64 `mapstructure:"diagonal_hopping" yaml:"diagonal_hopping"`
	Connectivity    int     `mapstructure:"connectivity" yaml:"connectivity"` // 4 or 8
	Periodic        bool    `mapstructure:"periodic" yaml:"periodic"`
}

// Model holds the Hubbard parameters.
type Model struct {
	Beta   float64 `mapstructure:"beta" yaml:"beta"`
	Slices int     `mapstructure:"slices" yaml:"slices"`
	U      float64 `mapstructure:"u" yaml:"u"`
	MuUp   float64 `mapstructure:"mu_up" yaml:"mu_up"`
	MuDn   float64 `mapstructure:"mu_dn" yaml:"mu_dn"`
}

// Sampling holds the Monte Carlo schedule.
type Sampling struct {
	Warmup          int    `mapstructure:"warmup" yaml:"warmup"`
	Sweeps          int    `mapstructure:"sweeps" yaml:"sweeps"`
	Bins            int    `mapstructure:"bins" yaml:"bins"`
	MeasureInterval int    `mapstructure:"measure_interval" yaml:"measure_interval"`
	Walkers         int    `mapstructure:"walkers" yaml:"walkers"`
	Parallel        int    `mapstructure:"parallel" yaml:"parallel"` // 0: one goroutine per walker
	Seed            uint64 `mapstructure:"seed" yaml:"seed"`
}

// Stabilization mirrors dqmc.StabilizationParameters.
type Stabilization struct {
	BlockSize     int     `mapstructure:"block_size" yaml:"block_size"`
	WrapFrequency int     `mapstructure:"wrap_frequency" yaml:"wrap_frequency"`
	MaxWrap       int     `mapstructure:"max_wrap" yaml:"max_wrap"`
	DiffLim       float64 `mapstructure:"diff_lim" yaml:"diff_lim"`
	OrthoInterval int     `mapstructure:"ortho_interval" yaml:"ortho_interval"`
}

// Output controls logging, checkpoints and the metrics endpoint.
type Output struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	Checkpoint  string `mapstructure:"checkpoint" yaml:"checkpoint"`     // directory; empty disables
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"` // e.g. ":9090"; empty disables
}

// Run is a complete run description.
type Run struct {
	Lattice       Lattice       `mapstructure:"lattice" yaml:"lattice"`
	Model         Model         `mapstructure:"model" yaml:"model"`
	Sampling      Sampling      `mapstructure:"sampling" yaml:"sampling"`
	Stabilization Stabilization `mapstructure:"stabilization" yaml:"stabilization"`
	Output        Output        `mapstructure:"output" yaml:"output"`
}

// Default returns a 4×4 half-filled Hubbard model at U = 4, β = 2.
func Default() Run {
	st := dqmc.DefaultStabilization()

	return Run{
		Lattice: Lattice{Width: 4, Height: 4, Hopping: 1, Connectivity: 4, Periodic: true},
		Model:   Model{Beta: 2, Slices: 20, U: 4, MuUp: 2, MuDn: 2},
		Sampling: Sampling{
			Warmup: 200, Sweeps: 1000, Bins: 10, MeasureInterval: 5, Walkers: 1, Seed: 1,
		},
		Stabilization: Stabilization{
			BlockSize: st.BlockSize, WrapFrequency: st.WrapFrequency, MaxWrap: st.MaxWrap,
			DiffLim: st.DiffLim, OrthoInterval: st.OrthoInterval,
		},
		Output: Output{LogLevel: "info"},
	}
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Run) {
	v.SetDefault("lattice.width", d.Lattice.Width)
	v.SetDefault("lattice.height", d.Lattice.Height)
	v.SetDefault("lattice.hopping", d.Lattice.Hopping)
	v.SetDefault("lattice.diagonal_hopping", d.Lattice.DiagonalHopping)
	v.SetDefault("lattice.connectivity", d.Lattice.Connectivity)
	v.SetDefault("lattice.periodic", d.Lattice.Periodic)

	v.SetDefault("model.beta", d.Model.Beta)
	v.SetDefault("model.slices", d.Model.Slices)
	v.SetDefault("model.u", d.Model.U)
	v.SetDefault("model.mu_up", d.Model.MuUp)
	v.SetDefault("model.mu_dn", d.Model.MuDn)

	v.SetDefault("sampling.warmup", d.Sampling.Warmup)
	v.SetDefault("sampling.sweeps", d.Sampling.Sweeps)
	v.SetDefault("sampling.bins", d.Sampling.Bins)
	v.SetDefault("sampling.measure_interval", d.Sampling.MeasureInterval)
	v.SetDefault("sampling.walkers", d.Sampling.Walkers)
	v.SetDefault("sampling.parallel", d.Sampling.Parallel)
	v.SetDefault("sampling.seed", d.Sampling.Seed)

	v.SetDefault("stabilization.block_size", d.Stabilization.BlockSize)
	v.SetDefault("stabilization.wrap_frequency", d.Stabilization.WrapFrequency)
	v.SetDefault("stabilization.max_wrap", d.Stabilization.MaxWrap)
	v.SetDefault("stabilization.diff_lim", d.Stabilization.DiffLim)
	v.SetDefault("stabilization.ortho_interval", d.Stabilization.OrthoInterval)

	v.SetDefault("output.log_level", d.Output.LogLevel)
	v.SetDefault("output.checkpoint", d.Output.Checkpoint)
	v.SetDefault("output.metrics_addr", d.Output.MetricsAddr)
}

// Load reads path (YAML; empty for defaults and environment only),
// applies .env and DQMC_* overrides and validates the result.
// A missing .env file is not an error; a missing config file is.
func Load(path string) (*Run, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var r Run
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	return &r, nil
}

// Validate checks the keys that no builder checks and then every builder phase.
func (r Run) Validate() error {
	switch {
	case r.Lattice.Connectivity != 4 && r.Lattice.Connectivity != 8:
		return fmt.Errorf("%w: lattice.connectivity=%d (want 4 or 8)", ErrInvalidConfig, r.Lattice.Connectivity)
	case r.Sampling.Walkers < 1:
		return fmt.Errorf("%w: sampling.walkers=%d", ErrInvalidConfig, r.Sampling.Walkers)
	case r.Sampling.Parallel < 0:
		return fmt.Errorf("%w: sampling.parallel=%d", ErrInvalidConfig, r.Sampling.Parallel)
	}
	if _, err := r.Geometry(); err != nil {
		return fmt.Errorf("%w: lattice: %w", ErrInvalidConfig, err)
	}
	if err := r.Params().Validate(); err != nil {
		return fmt.Errorf("%w: model: %w", ErrInvalidConfig, err)
	}
	if err := r.Walker().Validate(); err != nil {
		return fmt.Errorf("%w: sampling/stabilization: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Geometry builds the lattice.
func (r Run) Geometry() (*lattice.Geometry, error) {
	opts := lattice.Options{
		Hopping:         r.Lattice.Hopping,
		DiagonalHopping: r.Lattice.DiagonalHopping,
		Conn:            lattice.Conn4,
		Periodic:        r.Lattice.Periodic,
	}
	if r.Lattice.Connectivity == 8 {
		opts.Conn = lattice.Conn8
	}

	return lattice.NewRectangular(r.Lattice.Width, r.Lattice.Height, opts)
}

// Params returns the model parameters for Width×Height sites.
func (r Run) Params() propagator.Params {
	return propagator.Params{
		Sites:  r.Lattice.Width * r.Lattice.Height,
		Beta:   r.Model.Beta,
		Slices: r.Model.Slices,
		U:      r.Model.U,
		Mu:     [2]float64{lattice.Up: r.Model.MuUp, lattice.Down: r.Model.MuDn},
	}
}

// Walker returns the per-walker schedule.
func (r Run) Walker() dqmc.Config {
	return dqmc.Config{
		Warmup:          r.Sampling.Warmup,
		Sweeps:          r.Sampling.Sweeps,
		Bins:            r.Sampling.Bins,
		MeasureInterval: r.Sampling.MeasureInterval,
		Seed:            r.Sampling.Seed,
		Stabilization: dqmc.StabilizationParameters{
			BlockSize:     r.Stabilization.BlockSize,
			WrapFrequency: r.Stabilization.WrapFrequency,
			MaxWrap:       r.Stabilization.MaxWrap,
			DiffLim:       r.Stabilization.DiffLim,
			OrthoInterval: r.Stabilization.OrthoInterval,
		},
	}
}

// WriteYAML writes r as a YAML document that Load accepts.
func (r Run) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	return enc.Close()
}

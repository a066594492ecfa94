package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/katalvlaran/dqmc/config"
	"github.com/katalvlaran/dqmc/lattice"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	d := config.Default()
	require.NoError(t, d.Validate())

	g, err := d.Geometry()
	require.NoError(t, err)
	assert.Equal(t, 16, g.Sites())
	assert.True(t, g.Bipartite())

	p := d.Params()
	assert.Equal(t, 16, p.Sites)
	assert.Equal(t, p.U/2, p.Mu[lattice.Up])
	assert.NoError(t, d.Walker().Validate())
}

// TestLoadPrecedence: file values override defaults, environment overrides the file.
func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, `
lattice:
  width: 6
  height: 1
model:
  u: 2
  mu_up: 1
  mu_dn: 1
stabilization:
  diff_lim: 0.01
`)
	t.Setenv("DQMC_MODEL_U", "3")
	t.Setenv("DQMC_SAMPLING_SEED", "42")

	r, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, r.Lattice.Width)
	assert.Equal(t, 1, r.Lattice.Height)
	assert.Equal(t, 3.0, r.Model.U)
	assert.Equal(t, 1.0, r.Model.MuUp)
	assert.Equal(t, uint64(42), r.Sampling.Seed)
	assert.Equal(t, 0.01, r.Stabilization.DiffLim)
	assert.Equal(t, config.Default().Model.Slices, r.Model.Slices)
	assert.Equal(t, config.Default().Stabilization.BlockSize, r.Walker().Stabilization.BlockSize)
}

func TestLoadWithoutFile(t *testing.T) {
	r, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *r)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	want := config.Default()
	want.Lattice.Connectivity = 8
	want.Lattice.DiagonalHopping = -0.2
	want.Output.Checkpoint = "ckpt"

	path := filepath.Join(t.TempDir(), "out.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, want.WriteYAML(f))
	require.NoError(t, f.Close())

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]func(r *config.Run){
		"connectivity": func(r *config.Run) { r.Lattice.Connectivity = 6 },
		"walkers":      func(r *config.Run) { r.Sampling.Walkers = 0 },
		"width":        func(r *config.Run) { r.Lattice.Width = 0 },
		"slices":       func(r *config.Run) { r.Model.Slices = 0 },
		"block":        func(r *config.Run) { r.Stabilization.BlockSize = 0 },
		"bins":         func(r *config.Run) { r.Sampling.Bins = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := config.Default()
			mutate(&r)
			assert.ErrorIs(t, r.Validate(), config.ErrInvalidConfig)
		})
	}

	r := config.Default()
	r.Model.Beta = -1
	assert.ErrorIs(t, r.Validate(), propagator.ErrInvalidParameter)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("DQMC_LATTICE_CONNECTIVITY", "5")
	_, err = config.Load("")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

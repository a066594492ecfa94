package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/katalvlaran/dqmc/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallRun(t *testing.T) *config.Run {
	t.Helper()
	cfg := config.Default()
	cfg.Lattice.Width, cfg.Lattice.Height = 2, 2
	cfg.Model.Beta, cfg.Model.Slices = 1, 4
	cfg.Sampling.Warmup, cfg.Sampling.Sweeps, cfg.Sampling.Bins = 2, 4, 2
	cfg.Sampling.MeasureInterval, cfg.Sampling.Walkers = 2, 2
	cfg.Output.LogLevel = "error"
	cfg.Output.Checkpoint = t.TempDir()
	require.NoError(t, cfg.Validate())
	return &cfg
}

// TestRunAndResume runs to completion, then resumes from the final checkpoints.
func TestRunAndResume(t *testing.T) {
	cfg := smallRun(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "density")
	assert.Contains(t, out.String(), "average_sign")

	resume = true
	t.Cleanup(func() { resume = false })
	out.Reset()
	// the checkpoints are at the last bin: nothing is left to measure
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "(no measurements)")
}

func TestConfigCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "stabilization:")
	assert.Contains(t, out.String(), "diff_lim: 0.1")
}

// SPDX-License-Identifier: MIT

package dqmc

import (
	"fmt"
	"math"
)

// Stabilization defaults.
const (
	DefaultBlockSize     = 10
	DefaultWrapFrequency = 5
	DefaultMaxWrap       = 100
	DefaultDiffLim       = 0.1
	DefaultOrthoInterval = 4
)

// StabilizationParameters bound the numerical error of the incremental updates.
type StabilizationParameters struct {
	BlockSize     int     // deferred-update buffer capacity
	WrapFrequency int     // recompute after slice l when l % WrapFrequency == 0
	MaxWrap       int     // divergences tolerated before a StabilityFault
	DiffLim       float64 // divergence threshold on max|G_incremental − G_recomputed|
	OrthoInterval int     // slices multiplied between QR refactors in a recompute
}

// DefaultStabilization returns the defaults above.
func DefaultStabilization() StabilizationParameters {
	return StabilizationParameters{
		BlockSize:     DefaultBlockSize,
		WrapFrequency: DefaultWrapFrequency,
		MaxWrap:       DefaultMaxWrap,
		DiffLim:       DefaultDiffLim,
		OrthoInterval: DefaultOrthoInterval,
	}
}

// Validate checks ranges.
func (p StabilizationParameters) Validate() error {
	switch {
	case p.BlockSize < 1:
		return fmt.Errorf("block_size=%d: %w", p.BlockSize, ErrInvalidParameter)
	case p.WrapFrequency < 1:
		return fmt.Errorf("wrap_frequency=%d: %w", p.WrapFrequency, ErrInvalidParameter)
	case p.MaxWrap < 0:
		return fmt.Errorf("max_wrap=%d: %w", p.MaxWrap, ErrInvalidParameter)
	case !(p.DiffLim > 0) || math.IsInf(p.DiffLim, 0):
		return fmt.Errorf("diff_lim=%g: %w", p.DiffLim, ErrInvalidParameter)
	case p.OrthoInterval < 1:
		return fmt.Errorf("ortho_interval=%d: %w", p.OrthoInterval, ErrInvalidParameter)
	}

	return nil
}

// Config is the sampling schedule of one walker.
type Config struct {
	Warmup          int    // unmeasured sweeps before the first bin
	Sweeps          int    // measured sweeps in total
	Bins            int    // measurement bins; Sweeps/Bins sweeps each
	MeasureInterval int    // measure after slice l when l % MeasureInterval == 0
	Seed            uint64 // 0 selects DefaultSeed
	Stabilization   StabilizationParameters
}

// DefaultConfig returns a short schedule with default stabilization.
func DefaultConfig() Config {
	return Config{
		Warmup:          100,
		Sweeps:          1000,
		Bins:            10,
		MeasureInterval: 1,
		Stabilization:   DefaultStabilization(),
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.Warmup < 0:
		return fmt.Errorf("warmup=%d: %w", c.Warmup, ErrInvalidParameter)
	case c.Sweeps < 0:
		return fmt.Errorf("sweeps=%d: %w", c.Sweeps, ErrInvalidParameter)
	case c.Bins < 1:
		return fmt.Errorf("bins=%d: %w", c.Bins, ErrInvalidParameter)
	case c.Sweeps > 0 && c.Sweeps < c.Bins:
		return fmt.Errorf("sweeps=%d < bins=%d: %w", c.Sweeps, c.Bins, ErrInvalidParameter)
	case c.MeasureInterval < 1:
		return fmt.Errorf("measure_interval=%d: %w", c.MeasureInterval, ErrInvalidParameter)
	}

	return c.Stabilization.Validate()
}

// SweepsPerBin returns Sweeps/Bins; a remainder is dropped.
func (c Config) SweepsPerBin() int { return c.Sweeps / c.Bins }

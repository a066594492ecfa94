// SPDX-License-Identifier: MIT

package dqmc

import "github.com/katalvlaran/dqmc/hsfield"

// AcceptFunc decides a proposal from its ratio R and a uniform u ∈ [0,1).
// The driver has already turned non-finite ratios into rejections.
type AcceptFunc func(ratio, u float64) bool

// Metropolis accepts iff u < min(1, R).
func Metropolis(ratio, u float64) bool { return u < min(1, ratio) }

// RejectAll never accepts. Sweeps under RejectAll leave the walker unchanged.
func RejectAll(float64, float64) bool { return false }

// Option customizes NewWalker.
// Option constructors panic on nil arguments.
type Option func(*walkerConfig)

type walkerConfig struct {
	accept AcceptFunc
	field  *hsfield.Field
	seed   *uint64
	sink   Sink
	id     int
}

// WithAcceptance replaces the Metropolis rule.
func WithAcceptance(fn AcceptFunc) Option {
	if fn == nil {
		panic("dqmc: WithAcceptance(nil)")
	}

	return func(c *walkerConfig) { c.accept = fn }
}

// WithField starts from a given field instead of a random one.
// The walker takes a private copy.
func WithField(f *hsfield.Field) Option {
	if f == nil {
		panic("dqmc: WithField(nil)")
	}

	return func(c *walkerConfig) { c.field = f.Clone() }
}

// WithSeed overrides Config.Seed.
func WithSeed(seed uint64) Option {
	return func(c *walkerConfig) { c.seed = &seed }
}

// WithSink sets the measurement sink used by measured sweeps.
func WithSink(s Sink) Option {
	if s == nil {
		panic("dqmc: WithSink(nil)")
	}

	return func(c *walkerConfig) { c.sink = s }
}

// WithID labels the walker in logs.
func WithID(id int) Option {
	return func(c *walkerConfig) { c.id = id }
}

// Package simctx carries the execution context handed to every DQMC
// constructor: the structured logger, the metrics registry and the run id.
// A Context is built once per process (or per test) and never stored in a
// package-level variable.
package simctx

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Context is the explicit execution context. Fields are read-only after New.
type Context struct {
	Logger  logrus.FieldLogger
	Metrics *Metrics
	RunID   string
}

// Option configures New.
type Option func(*Context)

// WithLogger overrides the default info-level text logger.
// Panics on nil, which is a programming error.
func WithLogger(l logrus.FieldLogger) Option {
	if l == nil {
		panic("simctx: WithLogger(nil)")
	}

	return func(c *Context) { c.Logger = l }
}

// WithRunID pins the run id instead of generating a random UUID.
func WithRunID(id string) Option {
	return func(c *Context) { c.RunID = id }
}

// WithRegistry registers metrics on reg instead of a fresh private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	if reg == nil {
		panic("simctx: WithRegistry(nil)")
	}

	return func(c *Context) { c.Metrics = NewMetrics(reg) }
}

// New builds a Context. Defaults: info-level text logger on stderr,
// a private prometheus registry, a random UUID run id.
func New(opts ...Option) *Context {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		l, _ := NewLogger("info")
		c.Logger = l
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	c.Logger = c.Logger.WithField("run", c.RunID)

	return c
}

// Discard returns a Context whose logger drops everything. Used by tests.
func Discard() *Context {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return New(WithLogger(l), WithRunID("test"))
}

// With returns a shallow copy whose logger carries an extra field.
// Metrics and run id are shared with the parent.
func (c *Context) With(key string, value any) *Context {
	cp := *c
	cp.Logger = c.Logger.WithField(key, value)

	return &cp
}

// NewLogger builds a logrus text logger with full timestamps at the named level.
// Accepted levels: debug, info, warn, error (case-insensitive).
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info", "":
		logger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		return logger, fmt.Errorf("simctx: unknown log level %q", level)
	}

	return logger, nil
}

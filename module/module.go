// Package module implements the per-cell lifecycle state machines and the
// division protocol they trigger.
//
// Every module is a PhaseModule: a phase, a tick counter and a handler
// table keyed by phase. Module families differ only in the handlers they
// install.
package module

import (
	"errors"

	"github.com/pthm-cable/tissue/cell"
)

// ErrIllegalConfiguration is returned when a module is configured with an
// unknown ruleset or a distribution of the wrong family.
var ErrIllegalConfiguration = errors.New("illegal configuration")

type options struct {
	poisson PoissonFactory
}

// Option configures module construction.
type Option func(*options)

// WithPoisson replaces the Poisson sampler used for phase timing.
func WithPoisson(f PoissonFactory) Option {
	return func(o *options) { o.poisson = f }
}

func buildOptions(opts []Option) options {
	o := options{poisson: DistuvPoisson{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Modules returns the factory cells use to pick a module when their state
// changes.
func Modules(opts ...Option) cell.ModuleFactory {
	return func(c *cell.Cell, state cell.State) (cell.Module, error) {
		return ForState(c, state, opts...)
	}
}

// ForState builds the module for c entering state. States without an
// active process get no module.
func ForState(c *cell.Cell, state cell.State, opts ...Option) (cell.Module, error) {
	switch state {
	case cell.StateProliferative:
		switch c.Class() {
		case cell.ClassStemWT, cell.ClassStemMUDMUT:
			return asModule(NewStemProliferation(c, opts...))
		case cell.ClassGMC:
			return asModule(NewDifferentiatingProliferation(c, opts...))
		default:
			return asModule(NewProliferation(c, opts...))
		}
	case cell.StateApoptotic:
		return asModule(NewApoptosis(c, opts...))
	}
	return nil, nil
}

func asModule(m *PhaseModule, err error) (cell.Module, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

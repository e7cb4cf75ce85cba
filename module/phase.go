package module

import (
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
)

// Family identifies the kind of lifecycle a PhaseModule runs.
type Family uint8

const (
	FamilyProliferation Family = iota
	FamilyApoptosis
)

func (f Family) String() string {
	switch f {
	case FamilyProliferation:
		return "proliferation"
	case FamilyApoptosis:
		return "apoptosis"
	default:
		return "unknown"
	}
}

type handler func(rng *rand.Rand, sim cell.Simulation) error

// PhaseModule is the generic driver shared by every module family. Step
// runs the handler installed for the current phase; phases without a
// handler (UNDEFINED, terminal phases) do nothing.
//
// Handlers decide transitions by comparing currentSteps plus a Poisson
// draw against the phase duration. After a handler that did not change
// phase, the driver increments currentSteps; a phase change resets it to
// zero.
type PhaseModule struct {
	cell         *cell.Cell
	family       Family
	phase        cell.Phase
	currentSteps int
	poisson      PoissonFactory
	handlers     map[cell.Phase]handler
	advanced     bool
}

func newPhaseModule(c *cell.Cell, family Family, phase cell.Phase, o options) *PhaseModule {
	return &PhaseModule{
		cell:     c,
		family:   family,
		phase:    phase,
		poisson:  o.poisson,
		handlers: make(map[cell.Phase]handler),
	}
}

// Cell returns the owning cell.
func (m *PhaseModule) Cell() *cell.Cell { return m.cell }

// Family returns the module family.
func (m *PhaseModule) Family() Family { return m.family }

// Phase returns the current phase.
func (m *PhaseModule) Phase() cell.Phase { return m.phase }

// CurrentSteps returns the ticks spent in the current phase.
func (m *PhaseModule) CurrentSteps() int { return m.currentSteps }

// SetPhase moves to phase and resets the tick counter.
func (m *PhaseModule) SetPhase(phase cell.Phase) {
	m.phase = phase
	m.currentSteps = 0
	m.advanced = true
}

// Step runs one tick of the current phase.
func (m *PhaseModule) Step(rng *rand.Rand, sim cell.Simulation) error {
	h, ok := m.handlers[m.phase]
	if !ok {
		return nil
	}
	m.advanced = false
	if err := h(rng, sim); err != nil {
		return err
	}
	if !m.advanced {
		m.currentSteps++
	}
	return nil
}

// ready draws phase-completion progress and reports whether the phase has
// reached its duration threshold.
func (m *PhaseModule) ready(rate float64, steps int, rng *rand.Rand) bool {
	draw := m.poisson.Create(rate, rng).Next()
	return m.currentSteps+draw >= steps
}

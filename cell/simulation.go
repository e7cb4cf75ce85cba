package cell

import (
	"math/rand/v2"

	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
	"github.com/pthm-cable/tissue/telemetry"
)

// Module is the per-cell lifecycle state machine.
type Module interface {
	Step(rng *rand.Rand, sim Simulation) error
	Phase() Phase
}

// ModuleFactory builds the module a cell gets when it enters state.
// A nil Module means the state has no active process.
type ModuleFactory func(c *Cell, state State) (Module, error)

// Simulation is the capability handed to modules on every step. It gives
// access to the shared spatial index and scheduler without global state.
type Simulation interface {
	Tick() int
	NextID() int
	Potts() *lattice.Potts
	Grid() Grid
	Scheduler() Scheduler
	Factory() Factory
	Record(ev telemetry.Event)
}

// Grid indexes live agents by id.
type Grid interface {
	AddObject(c *Cell)
	RemoveObject(c *Cell)
	GetObjectAt(id int) (*Cell, bool)
	All() []*Cell
}

// Scheduler schedules a cell for stepping every tick and returns the
// function that unschedules it.
type Scheduler interface {
	Schedule(c *Cell) (stop func())
}

// Factory turns persistent records into live cells.
type Factory interface {
	Convert(rec *Container, loc *lattice.Location, rng *rand.Rand) (*Cell, error)
	// Parameters returns the population-level parameters of pop.
	Parameters(pop int, rng *rand.Rand) (*params.Parameters, error)
}

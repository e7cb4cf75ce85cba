package module

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/telemetry"
)

// scheduleDaughter brings rec to life on loc: the new cell is added to the
// grid, registered with the lattice, written into it and scheduled. If the
// record cannot be converted, loc is folded back into the parent so no
// voxels are lost.
func scheduleDaughter(sim cell.Simulation, rng *rand.Rand, parent *cell.Cell, rec *cell.Container, loc *lattice.Location, parentVolume int, stem, swapped bool) (*cell.Cell, error) {
	d, err := sim.Factory().Convert(rec, loc, rng)
	if err != nil {
		parent.Location().Absorb(loc)
		return nil, fmt.Errorf("daughter of cell %d: %w", parent.ID(), err)
	}
	sim.Grid().AddObject(d)
	sim.Potts().Register(d)
	d.Reset(sim.Potts())
	d.Schedule(sim.Scheduler())

	sim.Record(telemetry.NewDivisionEvent(sim.Tick(), d.ID(), parent.ID(), d.Pop(), parent.Pop(),
		loc.Volume(), parentVolume, stem, swapped))
	slog.Debug("division", "cell", d.ID(), "parent", parent.ID(), "pop", d.Pop(), "tick", sim.Tick())
	return d, nil
}

// removeCell clears c from the lattice and unschedules it for good.
func removeCell(sim cell.Simulation, c *cell.Cell) {
	volume := c.Location().Volume()
	c.Location().Clear(sim.Potts())
	sim.Grid().RemoveObject(c)
	sim.Potts().Deregister(c)
	c.Stop()

	sim.Record(telemetry.NewRemovalEvent(sim.Tick(), c.ID(), c.Pop(), volume, c.Age()))
	slog.Debug("removal", "cell", c.ID(), "parent", c.Parent(), "pop", c.Pop(), "tick", sim.Tick())
}

// replaceCell swaps c for a fresh agent built from rec on the same
// location. The old agent is stopped; the new one takes its place in the
// grid, the lattice and the schedule. If rec cannot be converted, c stays
// in place untouched.
func replaceCell(sim cell.Simulation, rng *rand.Rand, c *cell.Cell, rec *cell.Container) (*cell.Cell, error) {
	loc := c.Location()
	n, err := sim.Factory().Convert(rec, loc, rng)
	if err != nil {
		return nil, fmt.Errorf("replacing cell %d: %w", c.ID(), err)
	}

	sim.Grid().RemoveObject(c)
	sim.Potts().Deregister(c)
	c.Stop()
	sim.Grid().AddObject(n)
	sim.Potts().Register(n)
	n.Reset(sim.Potts())
	n.Schedule(sim.Scheduler())

	sim.Record(telemetry.NewDifferentiationEvent(sim.Tick(), n.ID(), c.Pop(), n.Pop(), loc.Volume()))
	return n, nil
}

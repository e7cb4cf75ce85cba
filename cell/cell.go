// Package cell defines the simulated agent: its persistent record, its
// volume targets and the capabilities its module is stepped with.
package cell

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
)

// Cell is a live agent bound to a location.
type Cell struct {
	id        int
	parent    int
	pop       int
	age       int
	divisions int
	class     Class
	state     State
	module    Module

	location   *lattice.Location
	parameters *params.Parameters
	links      *params.GrabBag

	criticalVolume        float64
	criticalHeight        float64
	criticalRegionVolumes map[lattice.Region]float64

	targetVolume        float64
	targetRegionVolumes map[lattice.Region]float64

	apicalAxis r3.Vec

	newModule ModuleFactory
	stop      func()
	stopped   bool
}

// Binding is what a Factory supplies to bring a record to life.
type Binding struct {
	Class      Class
	Location   *lattice.Location
	Parameters *params.Parameters
	Links      *params.GrabBag
	Modules    ModuleFactory
}

// New creates a cell from rec and enters rec.State, building its module.
func New(rec *Container, b Binding) (*Cell, error) {
	c := &Cell{
		id:                    rec.ID,
		parent:                rec.Parent,
		pop:                   rec.Pop,
		age:                   rec.Age,
		divisions:             rec.Divisions,
		class:                 b.Class,
		location:              b.Location,
		parameters:            b.Parameters,
		links:                 b.Links,
		criticalVolume:        rec.CriticalVolume,
		criticalHeight:        rec.CriticalHeight,
		criticalRegionVolumes: make(map[lattice.Region]float64, len(rec.CriticalRegionVolumes)),
		targetVolume:          rec.CriticalVolume,
		targetRegionVolumes:   make(map[lattice.Region]float64, len(rec.CriticalRegionVolumes)),
		newModule:             b.Modules,
	}
	for r, v := range rec.CriticalRegionVolumes {
		c.criticalRegionVolumes[r] = v
		c.targetRegionVolumes[r] = v
	}
	if err := c.SetState(rec.State); err != nil {
		return nil, fmt.Errorf("cell %d: %w", rec.ID, err)
	}
	return c, nil
}

func (c *Cell) ID() int                        { return c.id }
func (c *Cell) Parent() int                    { return c.parent }
func (c *Cell) Pop() int                       { return c.pop }
func (c *Cell) Age() int                       { return c.age }
func (c *Cell) Divisions() int                 { return c.divisions }
func (c *Cell) Class() Class                   { return c.class }
func (c *Cell) State() State                   { return c.state }
func (c *Cell) Module() Module                 { return c.module }
func (c *Cell) Location() *lattice.Location    { return c.location }
func (c *Cell) Parameters() *params.Parameters { return c.parameters }
func (c *Cell) Links() *params.GrabBag         { return c.links }
func (c *Cell) ApicalAxis() r3.Vec             { return c.apicalAxis }
func (c *Cell) CriticalVolume() float64        { return c.criticalVolume }
func (c *Cell) CriticalHeight() float64        { return c.criticalHeight }
func (c *Cell) TargetVolume() float64          { return c.targetVolume }
func (c *Cell) Stopped() bool                  { return c.stopped }

// SetApicalAxis sets the axis division geometry is oriented against.
func (c *Cell) SetApicalAxis(axis r3.Vec) { c.apicalAxis = axis }

// SetCriticalVolume replaces the critical volume and scales region
// critical volumes by the same factor.
func (c *Cell) SetCriticalVolume(v float64) {
	if c.criticalVolume > 0 {
		f := v / c.criticalVolume
		for r := range c.criticalRegionVolumes {
			c.criticalRegionVolumes[r] *= f
		}
	}
	c.criticalVolume = v
}

// Volume returns the current volume of the cell's location.
func (c *Cell) Volume() float64 {
	return float64(c.location.Volume())
}

// RegionVolume returns the current volume of region r.
func (c *Cell) RegionVolume(r lattice.Region) float64 {
	return float64(c.location.RegionVolume(r))
}

// CriticalRegionVolume returns the critical volume of region r.
func (c *Cell) CriticalRegionVolume(r lattice.Region) float64 {
	return c.criticalRegionVolumes[r]
}

// TargetRegionVolume returns the target volume of region r.
func (c *Cell) TargetRegionVolume(r lattice.Region) float64 {
	return c.targetRegionVolumes[r]
}

// HasRegions reports whether the cell carries a nucleus.
func (c *Cell) HasRegions() bool {
	return c.criticalRegionVolumes[lattice.RegionNucleus] > 0
}

// SetState moves the cell into state and replaces its module.
func (c *Cell) SetState(state State) error {
	var m Module
	if c.newModule != nil {
		var err error
		if m, err = c.newModule(c, state); err != nil {
			return fmt.Errorf("entering %v: %w", state, err)
		}
	}
	c.state = state
	c.module = m
	return nil
}

// UpdateTarget moves the target volume by rate toward scale times the
// critical volume. A scale of 1 leaves the target unchanged.
func (c *Cell) UpdateTarget(rate, scale float64) {
	c.targetVolume = stepTarget(c.targetVolume, rate, scale, c.criticalVolume)
}

// UpdateRegionTarget is UpdateTarget for a single region.
func (c *Cell) UpdateRegionTarget(r lattice.Region, rate, scale float64) {
	c.targetRegionVolumes[r] = stepTarget(c.targetRegionVolumes[r], rate, scale, c.criticalRegionVolumes[r])
}

func stepTarget(target, rate, scale, critical float64) float64 {
	limit := scale * critical
	switch {
	case scale > 1:
		return min(target+rate, limit)
	case scale < 1:
		return max(target-rate, limit)
	}
	return target
}

// SetTargets pins the target volumes to the cell's current volumes.
func (c *Cell) SetTargets() {
	c.targetVolume = c.Volume()
	for r := range c.targetRegionVolumes {
		c.targetRegionVolumes[r] = c.RegionVolume(r)
	}
}

// Reset writes the cell's id into the lattice at its location and resets
// targets to critical volumes.
func (c *Cell) Reset(p *lattice.Potts) {
	c.location.Update(c.id, p)
	c.targetVolume = c.criticalVolume
	for r, v := range c.criticalRegionVolumes {
		c.targetRegionVolumes[r] = v
	}
}

// Step ages the cell and steps its module.
func (c *Cell) Step(rng *rand.Rand, sim Simulation) error {
	if c.stopped {
		return nil
	}
	c.age++
	if c.module == nil {
		return nil
	}
	return c.module.Step(rng, sim)
}

// Schedule registers the cell with s.
func (c *Cell) Schedule(s Scheduler) {
	c.stop = s.Schedule(c)
	c.stopped = false
}

// Stop unschedules the cell permanently.
func (c *Cell) Stop() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.stopped = true
}

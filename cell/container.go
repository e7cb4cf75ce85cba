package cell

import (
	"maps"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
)

// Container is the persistent record of a cell, independent of its
// location and module.
type Container struct {
	ID        int
	Parent    int
	Pop       int
	Age       int
	Divisions int
	State     State

	CriticalVolume        float64
	CriticalHeight        float64
	CriticalRegionVolumes map[lattice.Region]float64

	// ParentParameters, when set, is rebased into the new cell's
	// distribution-backed parameters.
	ParentParameters *params.Parameters
}

// MakeOption adjusts the record produced by Make.
type MakeOption func(*Container)

// WithPop places the daughter in a different population.
func WithPop(pop int) MakeOption {
	return func(c *Container) { c.Pop = pop }
}

// WithCriticalVolume overrides the daughter's critical volume.
func WithCriticalVolume(v float64) MakeOption {
	return func(c *Container) {
		if c.CriticalVolume > 0 {
			f := v / c.CriticalVolume
			for r := range c.CriticalRegionVolumes {
				c.CriticalRegionVolumes[r] *= f
			}
		}
		c.CriticalVolume = v
	}
}

// Make counts a division on c and returns the record for a daughter with
// id and state. The daughter inherits the parent's population, age,
// division count and critical volumes unless overridden.
func (c *Cell) Make(id int, state State, rng *rand.Rand, opts ...MakeOption) *Container {
	c.divisions++
	rec := &Container{
		ID:                    id,
		Parent:                c.id,
		Pop:                   c.pop,
		Age:                   c.age,
		Divisions:             c.divisions,
		State:                 state,
		CriticalVolume:        c.criticalVolume,
		CriticalHeight:        c.criticalHeight,
		CriticalRegionVolumes: maps.Clone(c.criticalRegionVolumes),
		ParentParameters:      c.parameters,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// Record returns the persistent record of c as it stands.
func (c *Cell) Record() *Container {
	return &Container{
		ID:                    c.id,
		Parent:                c.parent,
		Pop:                   c.pop,
		Age:                   c.age,
		Divisions:             c.divisions,
		State:                 c.state,
		CriticalVolume:        c.criticalVolume,
		CriticalHeight:        c.criticalHeight,
		CriticalRegionVolumes: maps.Clone(c.criticalRegionVolumes),
		ParentParameters:      c.parameters,
	}
}

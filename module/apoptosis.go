package module

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
)

// Size targets, as fractions of critical volume, that apoptotic cells
// shrink toward.
const (
	EarlySizeTarget = 0.99
	LateSizeTarget  = 0.25
)

type apoptosis struct {
	m *PhaseModule

	rateEarly, rateLate   float64
	stepsEarly, stepsLate int

	waterLossRate     float64
	blebbingRate      float64
	pyknosisRate      float64
	fragmentationRate float64
}

// NewApoptosis builds the EARLY → LATE → APOPTOSED module. Reaching the
// terminal phase removes the cell from the simulation.
func NewApoptosis(c *cell.Cell, opts ...Option) (*PhaseModule, error) {
	r := params.NewReader(c.Parameters())
	a := &apoptosis{
		rateEarly:         r.Double("apoptosis/RATE_EARLY"),
		rateLate:          r.Double("apoptosis/RATE_LATE"),
		stepsEarly:        r.Int("apoptosis/STEPS_EARLY"),
		stepsLate:         r.Int("apoptosis/STEPS_LATE"),
		waterLossRate:     r.Double("apoptosis/WATER_LOSS_RATE"),
		blebbingRate:      r.Double("apoptosis/CYTOPLASMIC_BLEBBING_RATE"),
		pyknosisRate:      r.Double("apoptosis/NUCLEUS_PYKNOSIS_RATE"),
		fragmentationRate: r.Double("apoptosis/NUCLEUS_FRAGMENTATION_RATE"),
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("apoptosis module: %w", err)
	}

	a.m = newPhaseModule(c, FamilyApoptosis, cell.PhaseApoptoticEarly, buildOptions(opts))
	a.m.handlers[cell.PhaseApoptoticEarly] = a.stepEarly
	a.m.handlers[cell.PhaseApoptoticLate] = a.stepLate
	return a.m, nil
}

func (a *apoptosis) stepEarly(rng *rand.Rand, sim cell.Simulation) error {
	c := a.m.cell
	c.UpdateTarget(a.waterLossRate, EarlySizeTarget)
	if c.HasRegions() {
		c.UpdateRegionTarget(lattice.RegionNucleus, a.pyknosisRate, EarlySizeTarget)
	}
	if a.m.ready(a.rateEarly, a.stepsEarly, rng) {
		a.m.SetPhase(cell.PhaseApoptoticLate)
	}
	return nil
}

// stepLate removes the cell once the phase has run its course and the cell
// has shrunk close to its late size target.
func (a *apoptosis) stepLate(rng *rand.Rand, sim cell.Simulation) error {
	c := a.m.cell
	c.UpdateTarget(a.blebbingRate, LateSizeTarget)
	if c.HasRegions() {
		c.UpdateRegionTarget(lattice.RegionNucleus, a.fragmentationRate, 0)
	}
	ready := a.m.ready(a.rateLate, a.stepsLate, rng)
	if ready && c.Volume() <= SizeCheckpoint*LateSizeTarget*c.CriticalVolume() {
		a.m.SetPhase(cell.PhaseApoptosed)
		removeCell(sim, c)
	}
	return nil
}

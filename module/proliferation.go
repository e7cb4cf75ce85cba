package module

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
)

// SizeCheckpoint is the fraction of the division size a cell must reach
// before leaving G2.
const SizeCheckpoint = 0.95

// proliferation runs the G1 → S → G2 → M cycle. The division protocol and
// the growth rate are pluggable so lineage variants can share the cycle.
type proliferation struct {
	m *PhaseModule

	rateG1, rateS, rateG2, rateM     float64
	stepsG1, stepsS, stepsG2, stepsM int

	cellGrowthRate       float64
	nucleusGrowthRate    float64
	basalApoptosisRate   float64
	condensationFraction float64
	sizeTarget           float64

	growthRate func(sim cell.Simulation) float64
	divide     func(rng *rand.Rand, sim cell.Simulation) error
}

func newProliferation(c *cell.Cell, o options) (*proliferation, error) {
	r := params.NewReader(c.Parameters())
	p := &proliferation{
		rateG1:               r.Double("proliferation/RATE_G1"),
		rateS:                r.Double("proliferation/RATE_S"),
		rateG2:               r.Double("proliferation/RATE_G2"),
		rateM:                r.Double("proliferation/RATE_M"),
		stepsG1:              r.Int("proliferation/STEPS_G1"),
		stepsS:               r.Int("proliferation/STEPS_S"),
		stepsG2:              r.Int("proliferation/STEPS_G2"),
		stepsM:               r.Int("proliferation/STEPS_M"),
		cellGrowthRate:       r.Double("proliferation/CELL_GROWTH_RATE"),
		nucleusGrowthRate:    r.Double("proliferation/NUCLEUS_GROWTH_RATE"),
		basalApoptosisRate:   r.Double("proliferation/BASAL_APOPTOSIS_RATE"),
		condensationFraction: r.Double("proliferation/NUCLEUS_CONDENSATION_FRACTION"),
		sizeTarget:           r.Double("proliferation/SIZE_TARGET"),
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("proliferation module: %w", err)
	}

	p.m = newPhaseModule(c, FamilyProliferation, cell.PhaseProliferativeG1, o)
	p.m.handlers[cell.PhaseProliferativeG1] = p.stepG1
	p.m.handlers[cell.PhaseProliferativeS] = p.stepS
	p.m.handlers[cell.PhaseProliferativeG2] = p.stepG2
	p.m.handlers[cell.PhaseProliferativeM] = p.stepM
	p.growthRate = func(cell.Simulation) float64 { return p.cellGrowthRate }
	p.divide = p.bisect
	return p, nil
}

// NewProliferation builds the cell-cycle module for c. Daughters are made
// by bisecting the cell and join the parent's population.
func NewProliferation(c *cell.Cell, opts ...Option) (*PhaseModule, error) {
	p, err := newProliferation(c, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return p.m, nil
}

// apoptosisEscape forces the cell into apoptosis with probability
// basalApoptosisRate.
func (p *proliferation) apoptosisEscape(rng *rand.Rand) (bool, error) {
	if rng.Float64() >= p.basalApoptosisRate {
		return false, nil
	}
	return true, p.m.cell.SetState(cell.StateApoptotic)
}

func (p *proliferation) growCell(sim cell.Simulation) {
	p.m.cell.UpdateTarget(p.growthRate(sim), p.sizeTarget)
}

func (p *proliferation) growNucleus() {
	if p.m.cell.HasRegions() {
		p.m.cell.UpdateRegionTarget(lattice.RegionNucleus, p.nucleusGrowthRate, p.sizeTarget)
	}
}

func (p *proliferation) stepG1(rng *rand.Rand, sim cell.Simulation) error {
	if escaped, err := p.apoptosisEscape(rng); escaped {
		return err
	}
	c := p.m.cell
	p.growCell(sim)
	if c.HasRegions() && c.RegionVolume(lattice.RegionNucleus) < c.CriticalRegionVolume(lattice.RegionNucleus) {
		c.UpdateRegionTarget(lattice.RegionNucleus, p.nucleusGrowthRate, p.sizeTarget)
	}
	if p.m.ready(p.rateG1, p.stepsG1, rng) {
		p.m.SetPhase(cell.PhaseProliferativeS)
	}
	return nil
}

func (p *proliferation) stepS(rng *rand.Rand, sim cell.Simulation) error {
	p.growCell(sim)
	p.growNucleus()
	if p.m.ready(p.rateS, p.stepsS, rng) {
		p.m.SetPhase(cell.PhaseProliferativeG2)
	}
	return nil
}

func (p *proliferation) stepG2(rng *rand.Rand, sim cell.Simulation) error {
	if escaped, err := p.apoptosisEscape(rng); escaped {
		return err
	}
	p.growCell(sim)
	p.growNucleus()
	ready := p.m.ready(p.rateG2, p.stepsG2, rng)
	if ready && p.sizeChecked() {
		p.m.SetPhase(cell.PhaseProliferativeM)
	}
	return nil
}

// sizeChecked reports whether the cell, and its nucleus if it has one, is
// big enough to divide.
func (p *proliferation) sizeChecked() bool {
	c := p.m.cell
	threshold := SizeCheckpoint * p.sizeTarget
	if c.Volume() < threshold*c.CriticalVolume() {
		return false
	}
	if c.HasRegions() {
		return c.RegionVolume(lattice.RegionNucleus) >= threshold*c.CriticalRegionVolume(lattice.RegionNucleus)
	}
	return true
}

func (p *proliferation) stepM(rng *rand.Rand, sim cell.Simulation) error {
	c := p.m.cell
	p.growCell(sim)
	if c.HasRegions() {
		crit := c.CriticalRegionVolume(lattice.RegionNucleus)
		if c.RegionVolume(lattice.RegionNucleus) > crit {
			c.Location().Distribute(lattice.RegionNucleus, int(p.condensationFraction*crit))
			c.SetTargets()
		}
	}
	if p.m.ready(p.rateM, p.stepsM, rng) {
		p.m.SetPhase(cell.PhaseProliferativeG1)
		return p.divide(rng, sim)
	}
	return nil
}

// bisect divides the cell through its center. The daughter stays in the
// parent's population.
func (p *proliferation) bisect(rng *rand.Rand, sim cell.Simulation) error {
	c := p.m.cell
	parentVolume := c.Location().Volume()
	daughterLoc, err := c.Location().Bisect(rng)
	if err != nil {
		return fmt.Errorf("dividing cell %d: %w", c.ID(), err)
	}
	rec := c.Make(sim.NextID(), cell.StateProliferative, rng)
	if _, err := scheduleDaughter(sim, rng, c, rec, daughterLoc, parentVolume, false, false); err != nil {
		return err
	}
	c.Reset(sim.Potts())
	return nil
}

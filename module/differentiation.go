package module

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
)

type differentiatingProliferation struct {
	*proliferation
}

// NewDifferentiatingProliferation builds the cycle of a terminally dividing
// progenitor. The single division bisects the cell; both halves move to a
// linked population and stop proliferating, the parent by being replaced
// with a new agent under the same id.
func NewDifferentiatingProliferation(c *cell.Cell, opts ...Option) (*PhaseModule, error) {
	p, err := newProliferation(c, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	d := &differentiatingProliferation{proliferation: p}
	p.divide = d.divide
	return p.m, nil
}

func (d *differentiatingProliferation) divide(rng *rand.Rand, sim cell.Simulation) error {
	c := d.m.cell
	parentVolume := c.Location().Volume()
	daughterLoc, err := c.Location().Bisect(rng)
	if err != nil {
		return fmt.Errorf("dividing cell %d: %w", c.ID(), err)
	}
	c.Reset(sim.Potts())

	pop := c.Pop()
	if linked, ok := c.Links().Next(rng); ok {
		pop = linked
	}
	rec := c.Make(sim.NextID(), cell.StateQuiescent, rng, cell.WithPop(pop))
	if _, err := scheduleDaughter(sim, rng, c, rec, daughterLoc, parentVolume, false, false); err != nil {
		return err
	}

	replacement := c.Record()
	replacement.Pop = pop
	replacement.State = cell.StateQuiescent
	if _, err := replaceCell(sim, rng, c, replacement); err != nil {
		return err
	}
	return nil
}

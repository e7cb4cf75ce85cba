package sim

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/config"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/module"
	"github.com/pthm-cable/tissue/params"
)

type population struct {
	class cell.Class
	state cell.State
	box   params.Box
	links map[int]float64
}

// PopulationFactory turns records into live cells using the configuration
// of their population.
type PopulationFactory struct {
	pops    map[int]population
	modules cell.ModuleFactory
}

// NewPopulationFactory builds a factory for every configured population.
func NewPopulationFactory(cfg *config.Config, opts ...module.Option) (*PopulationFactory, error) {
	f := &PopulationFactory{
		pops:    make(map[int]population, len(cfg.Populations)),
		modules: module.Modules(opts...),
	}
	for _, pc := range cfg.Populations {
		class := cell.Class(pc.Class)
		if !class.Valid() {
			return nil, fmt.Errorf("population %d: unknown class %q", pc.ID, pc.Class)
		}
		state := cell.StateProliferative
		if pc.State != "" {
			s, err := cell.ParseState(pc.State)
			if err != nil {
				return nil, fmt.Errorf("population %d: %w", pc.ID, err)
			}
			state = s
		}

		box := params.Box(cfg.PopulationParameters(pc))
		box["CRITICAL_VOLUME"] = strconv.FormatFloat(pc.CriticalVolume, 'g', -1, 64)
		box["CRITICAL_HEIGHT"] = strconv.FormatFloat(pc.CriticalHeight, 'g', -1, 64)

		f.pops[pc.ID] = population{class: class, state: state, box: box, links: pc.Links}
	}
	return f, nil
}

// Convert builds the cell for rec at loc, drawing its distribution-backed
// parameters from rng.
func (f *PopulationFactory) Convert(rec *cell.Container, loc *lattice.Location, rng *rand.Rand) (*cell.Cell, error) {
	p, ok := f.pops[rec.Pop]
	if !ok {
		return nil, fmt.Errorf("cell %d: %w: unknown population %d", rec.ID, params.ErrInvalidParameter, rec.Pop)
	}
	prm, err := params.New(p.box, rec.ParentParameters, rng)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", rec.ID, err)
	}
	return cell.New(rec, cell.Binding{
		Class:      p.class,
		Location:   loc,
		Parameters: prm,
		Links:      params.NewGrabBag(p.links),
		Modules:    f.modules,
	})
}

// Parameters returns a parameter bag for pop as a whole, drawing its
// distribution-backed entries from rng.
func (f *PopulationFactory) Parameters(pop int, rng *rand.Rand) (*params.Parameters, error) {
	p, ok := f.pops[pop]
	if !ok {
		return nil, fmt.Errorf("%w: unknown population %d", params.ErrInvalidParameter, pop)
	}
	return params.New(p.box, nil, rng)
}

// IDs returns the configured population ids in ascending order.
func (f *PopulationFactory) IDs() []int {
	ids := make([]int, 0, len(f.pops))
	for id := range f.pops {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

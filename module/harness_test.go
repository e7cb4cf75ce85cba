package module

import (
	"maps"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/geom"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
	"github.com/pthm-cable/tissue/telemetry"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

type constSample int

func (s constSample) Next() int { return int(s) }

// fixedPoisson returns the same draw for every sampler it creates.
type fixedPoisson struct {
	draw  int
	calls int
}

func (f *fixedPoisson) Create(float64, *rand.Rand) PoissonSample {
	f.calls++
	return constSample(f.draw)
}

type fakeGrid struct {
	cells map[int]*cell.Cell
}

func (g *fakeGrid) AddObject(c *cell.Cell) { g.cells[c.ID()] = c }
func (g *fakeGrid) RemoveObject(c *cell.Cell) {
	if g.cells[c.ID()] == c {
		delete(g.cells, c.ID())
	}
}

func (g *fakeGrid) GetObjectAt(id int) (*cell.Cell, bool) {
	c, ok := g.cells[id]
	return c, ok
}

func (g *fakeGrid) All() []*cell.Cell {
	out := make([]*cell.Cell, 0, len(g.cells))
	for _, id := range slices.Sorted(maps.Keys(g.cells)) {
		out = append(out, g.cells[id])
	}
	return out
}

type fakeScheduler struct {
	scheduled map[*cell.Cell]bool
}

func (s *fakeScheduler) Schedule(c *cell.Cell) func() {
	s.scheduled[c] = true
	return func() { delete(s.scheduled, c) }
}

type population struct {
	class cell.Class
	box   params.Box
	links map[int]float64
}

type fakeFactory struct {
	pops    map[int]population
	poisson *fixedPoisson
}

func (f *fakeFactory) Parameters(pop int, rng *rand.Rand) (*params.Parameters, error) {
	p, ok := f.pops[pop]
	if !ok {
		return nil, params.ErrInvalidParameter
	}
	return params.New(p.box, nil, rng)
}

func (f *fakeFactory) Convert(rec *cell.Container, loc *lattice.Location, rng *rand.Rand) (*cell.Cell, error) {
	p, ok := f.pops[rec.Pop]
	if !ok {
		return nil, params.ErrInvalidParameter
	}
	prm, err := params.New(p.box, rec.ParentParameters, rng)
	if err != nil {
		return nil, err
	}
	return cell.New(rec, cell.Binding{
		Class:      p.class,
		Location:   loc,
		Parameters: prm,
		Links:      params.NewGrabBag(p.links),
		Modules:    Modules(WithPoisson(f.poisson)),
	})
}

type fakeSim struct {
	tick    int
	lastID  int
	potts   *lattice.Potts
	grid    *fakeGrid
	sched   *fakeScheduler
	factory *fakeFactory
	events  []telemetry.Event
}

func newFakeSim(draw int, pops map[int]population) *fakeSim {
	return &fakeSim{
		potts:   lattice.NewPotts(40, 40, 1),
		grid:    &fakeGrid{cells: make(map[int]*cell.Cell)},
		sched:   &fakeScheduler{scheduled: make(map[*cell.Cell]bool)},
		factory: &fakeFactory{pops: pops, poisson: &fixedPoisson{draw: draw}},
	}
}

func (s *fakeSim) Tick() int                 { return s.tick }
func (s *fakeSim) Potts() *lattice.Potts     { return s.potts }
func (s *fakeSim) Grid() cell.Grid           { return s.grid }
func (s *fakeSim) Scheduler() cell.Scheduler { return s.sched }
func (s *fakeSim) Factory() cell.Factory     { return s.factory }
func (s *fakeSim) Record(ev telemetry.Event) { s.events = append(s.events, ev) }

func (s *fakeSim) NextID() int {
	s.lastID++
	return s.lastID
}

func (s *fakeSim) eventTypes() []telemetry.EventType {
	var out []telemetry.EventType
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

// place seeds a cell of pop on voxels and registers it everywhere the
// simulation driver would.
func (s *fakeSim) place(t *testing.T, pop int, state cell.State, critical float64, voxels []lattice.Voxel) *cell.Cell {
	t.Helper()
	rec := &cell.Container{
		ID:             s.NextID(),
		Pop:            pop,
		State:          state,
		CriticalVolume: critical,
		CriticalHeight: 10,
	}
	c, err := s.factory.Convert(rec, lattice.NewLocation(voxels, false), testRNG(1))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	c.SetApicalAxis(geom.YAxis)
	s.grid.AddObject(c)
	s.potts.Register(c)
	c.Reset(s.potts)
	c.Schedule(s.sched)
	return c
}

func rect(x0, y0, w, h int) []lattice.Voxel {
	var out []lattice.Voxel
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			out = append(out, lattice.Voxel{X: x, Y: y})
		}
	}
	return out
}

func phaseModule(t *testing.T, c *cell.Cell) *PhaseModule {
	t.Helper()
	m, ok := c.Module().(*PhaseModule)
	if !ok {
		t.Fatalf("cell %d module = %T, want *PhaseModule", c.ID(), c.Module())
	}
	return m
}

func testBox(overrides map[string]string) params.Box {
	box := params.Box{
		"CRITICAL_VOLUME": "50",

		"proliferation/RATE_G1":                       "1",
		"proliferation/RATE_S":                        "1",
		"proliferation/RATE_G2":                       "1",
		"proliferation/RATE_M":                        "1",
		"proliferation/STEPS_G1":                      "10",
		"proliferation/STEPS_S":                       "10",
		"proliferation/STEPS_G2":                      "10",
		"proliferation/STEPS_M":                       "10",
		"proliferation/CELL_GROWTH_RATE":              "2",
		"proliferation/NUCLEUS_GROWTH_RATE":           "1",
		"proliferation/BASAL_APOPTOSIS_RATE":          "0",
		"proliferation/NUCLEUS_CONDENSATION_FRACTION": "0.5",
		"proliferation/SIZE_TARGET":                   "2",

		"proliferation/DIV_ROTATION_DISTRIBUTION":               "NORMAL(0,0)",
		"proliferation/DIFFERENTIATION_RULESET":                 "volume",
		"proliferation/DIFFERENTIATION_RULESET_EQUALITY_RANGE":  "0",
		"proliferation/APICAL_AXIS_RULESET":                     "global",
		"proliferation/APICAL_AXIS_ROTATION_DISTRIBUTION":       "NORMAL(0,10)",
		"proliferation/VOLUME_BASED_CRITICAL_VOLUME":            "0",
		"proliferation/VOLUME_BASED_CRITICAL_VOLUME_MULTIPLIER": "2",
		"proliferation/DYNAMIC_GROWTH_RATE_VOLUME":              "0",
		"proliferation/GROWTH_RATE_VOLUME_SENSITIVITY":          "1",
		"proliferation/DYNAMIC_GROWTH_RATE_NB_SELF_REPRESSION":  "0",
		"proliferation/NB_CONTACT_HALF_MAX":                     "1",
		"proliferation/NB_CONTACT_HILL_N":                       "1",
		"proliferation/PDELIKE":                                 "0",

		"apoptosis/RATE_EARLY":                 "1",
		"apoptosis/RATE_LATE":                  "1",
		"apoptosis/STEPS_EARLY":                "50",
		"apoptosis/STEPS_LATE":                 "50",
		"apoptosis/WATER_LOSS_RATE":            "0.25",
		"apoptosis/CYTOPLASMIC_BLEBBING_RATE":  "2",
		"apoptosis/NUCLEUS_PYKNOSIS_RATE":      "0.5",
		"apoptosis/NUCLEUS_FRAGMENTATION_RATE": "0.5",
	}
	for k, v := range overrides {
		box[k] = v
	}
	return box
}

// stemPops is a stem population 1 linked to a GMC population 2, which is
// linked to a neuron population 3.
func stemPops(class cell.Class, overrides map[string]string) map[int]population {
	return map[int]population{
		1: {class: class, box: testBox(overrides), links: map[int]float64{2: 1}},
		2: {class: cell.ClassGMC, box: testBox(nil), links: map[int]float64{3: 1}},
		3: {class: cell.ClassNeuron, box: testBox(nil)},
	}
}

package module

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/geom"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
)

// Apical axis rulesets for stem daughters.
const (
	ApicalGlobal   = "global"
	ApicalUniform  = "uniform"
	ApicalRotation = "rotation"
	ApicalNormal   = "normal"
)

type stemProliferation struct {
	*proliferation

	lineage  Lineage
	geometry DivisionGeometry
	fate     FateAssigner

	apicalRuleset  string
	apicalRotation params.Distribution

	volumeBasedCritical bool
	criticalMultiplier  float64
	initialSize         float64

	dynamicVolume     bool
	volumeSensitivity float64
	selfRepression    bool
	halfMax, hillN    float64
	pdeLike           bool
}

// NewStemProliferation builds the cell cycle of a stem lineage. Division
// splits the cell along a lineage-specific plane, then decides whether the
// daughter renews the stem population or differentiates into a linked one.
func NewStemProliferation(c *cell.Cell, opts ...Option) (*PhaseModule, error) {
	lineage, err := LineageFor(c.Class())
	if err != nil {
		return nil, err
	}
	p, err := newProliferation(c, buildOptions(opts))
	if err != nil {
		return nil, err
	}

	r := params.NewReader(c.Parameters())
	s := &stemProliferation{
		proliferation:       p,
		lineage:             lineage,
		apicalRuleset:       r.String("proliferation/APICAL_AXIS_RULESET"),
		volumeBasedCritical: r.Bool("proliferation/VOLUME_BASED_CRITICAL_VOLUME"),
		criticalMultiplier:  r.Double("proliferation/VOLUME_BASED_CRITICAL_VOLUME_MULTIPLIER"),
		initialSize:         r.Double("CRITICAL_VOLUME"),
		dynamicVolume:       r.Bool("proliferation/DYNAMIC_GROWTH_RATE_VOLUME"),
		volumeSensitivity:   r.Double("proliferation/GROWTH_RATE_VOLUME_SENSITIVITY"),
		selfRepression:      r.Bool("proliferation/DYNAMIC_GROWTH_RATE_NB_SELF_REPRESSION"),
		halfMax:             r.Double("proliferation/NB_CONTACT_HALF_MAX"),
		hillN:               r.Double("proliferation/NB_CONTACT_HILL_N"),
		pdeLike:             r.Bool("proliferation/PDELIKE"),
	}
	rotation := r.Distribution("proliferation/DIV_ROTATION_DISTRIBUTION")
	ruleset := r.String("proliferation/DIFFERENTIATION_RULESET")
	equalityRange := r.Double("proliferation/DIFFERENTIATION_RULESET_EQUALITY_RANGE")
	if s.apicalRuleset != ApicalGlobal {
		s.apicalRotation = r.Distribution("proliferation/APICAL_AXIS_ROTATION_DISTRIBUTION")
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("stem proliferation module: %w", err)
	}

	if s.geometry, err = NewDivisionGeometry(lineage, rotation); err != nil {
		return nil, err
	}
	if s.fate, err = NewFateAssigner(lineage, ruleset, equalityRange); err != nil {
		return nil, err
	}
	if err := s.checkApicalRuleset(); err != nil {
		return nil, err
	}
	if s.dynamicVolume && s.selfRepression {
		return nil, fmt.Errorf("%w: growth rate can be volume based or contact based, not both", ErrIllegalConfiguration)
	}

	p.growthRate = s.growthRate
	p.divide = s.divide
	return p.m, nil
}

func (s *stemProliferation) checkApicalRuleset() error {
	want := params.FamilyNormal
	switch s.apicalRuleset {
	case ApicalGlobal:
		return nil
	case ApicalUniform:
		want = params.FamilyUniform
	case ApicalRotation, ApicalNormal:
	default:
		return fmt.Errorf("%w: unknown apical axis ruleset %q", ErrIllegalConfiguration, s.apicalRuleset)
	}
	if s.apicalRotation.Family() != want {
		return fmt.Errorf("%w: apical axis ruleset %q needs a %v distribution, got %v",
			ErrIllegalConfiguration, s.apicalRuleset, want, s.apicalRotation.Family())
	}
	return nil
}

// growthRate returns the cell growth rate for this tick.
func (s *stemProliferation) growthRate(sim cell.Simulation) float64 {
	c := s.m.cell
	base := s.cellGrowthRate
	switch {
	case s.dynamicVolume:
		volume, critical := c.Volume(), c.CriticalVolume()
		if s.pdeLike {
			peers := populationPeers(sim, c)
			volumes := make([]float64, len(peers))
			criticals := make([]float64, len(peers))
			for i, o := range peers {
				volumes[i], criticals[i] = o.Volume(), o.CriticalVolume()
			}
			if len(peers) > 0 {
				volume, critical = stat.Mean(volumes, nil), stat.Mean(criticals, nil)
			}
		}
		return base * VolumeGrowthFactor(volume, critical, s.volumeSensitivity)
	case s.selfRepression:
		var n int
		if s.pdeLike {
			n = max(0, len(populationPeers(sim, c))-1)
		} else {
			n = ContactCount(sim, c)
		}
		return base * HillRepression(float64(n), s.halfMax, s.hillN)
	}
	return base
}

func (s *stemProliferation) divide(rng *rand.Rand, sim cell.Simulation) error {
	c := s.m.cell
	parentLoc := c.Location()
	parentVolume := parentLoc.Volume()

	plane, err := s.geometry.Plane(c, rng)
	if err != nil {
		return err
	}
	daughterLoc, err := parentLoc.Split(rng, plane)
	if err != nil {
		return fmt.Errorf("dividing cell %d: %w", c.ID(), err)
	}

	if s.fate.DaughterStem(parentLoc, daughterLoc, plane, c.ApicalAxis()) {
		return s.stemDaughter(rng, sim, daughterLoc, parentVolume)
	}
	return s.differentiatedDaughter(rng, sim, daughterLoc, parentVolume)
}

// stemDaughter renews the stem population. In volume-based mode both
// stem cells take their critical volume from the split.
func (s *stemProliferation) stemDaughter(rng *rand.Rand, sim cell.Simulation, daughterLoc *lattice.Location, parentVolume int) error {
	c := s.m.cell
	critical := c.CriticalVolume()
	if s.volumeBasedCritical {
		critical = max(float64(daughterLoc.Volume())*s.criticalMultiplier, s.initialSize/2)
		c.SetCriticalVolume(critical)
	}
	c.Reset(sim.Potts())

	rec := c.Make(sim.NextID(), cell.StateProliferative, rng, cell.WithCriticalVolume(critical))
	d, err := scheduleDaughter(sim, rng, c, rec, daughterLoc, parentVolume, true, false)
	if err != nil {
		return err
	}
	s.orientDaughter(d, rng)
	return nil
}

// differentiatedDaughter places the differentiated half in a linked
// population. If the half the parent kept is the one that must
// differentiate, the halves are swapped so the parent stays the stem cell.
func (s *stemProliferation) differentiatedDaughter(rng *rand.Rand, sim cell.Simulation, daughterLoc *lattice.Location, parentVolume int) error {
	c := s.m.cell
	parentLoc := c.Location()
	swapped := s.fate.DifferentiatedLocation(parentLoc, daughterLoc, c.ApicalAxis()) == parentLoc
	if swapped {
		lattice.SwapVoxels(parentLoc, daughterLoc)
	}
	c.Reset(sim.Potts())

	pop := c.Pop()
	if linked, ok := c.Links().Next(rng); ok {
		pop = linked
	}
	critical, err := s.differentiatedCriticalVolume(rng, sim, pop, daughterLoc)
	if err != nil {
		parentLoc.Absorb(daughterLoc)
		return err
	}

	rec := c.Make(sim.NextID(), cell.StateProliferative, rng, cell.WithPop(pop), cell.WithCriticalVolume(critical))
	d, err := scheduleDaughter(sim, rng, c, rec, daughterLoc, parentVolume, false, swapped)
	if err != nil {
		return err
	}
	s.orientDaughter(d, rng)
	return nil
}

// differentiatedCriticalVolume sizes a differentiated daughter. The
// volume-based multiplier belongs to the destination population.
func (s *stemProliferation) differentiatedCriticalVolume(rng *rand.Rand, sim cell.Simulation, pop int, loc *lattice.Location) (float64, error) {
	c := s.m.cell
	if !s.volumeBasedCritical {
		return c.CriticalVolume() * s.sizeTarget * s.lineage.DaughterProportion, nil
	}
	dest, err := sim.Factory().Parameters(pop, rng)
	if err != nil {
		return 0, fmt.Errorf("population %d: %w", pop, err)
	}
	mult, err := dest.GetDouble("proliferation/VOLUME_BASED_CRITICAL_VOLUME_MULTIPLIER")
	if err != nil {
		return 0, fmt.Errorf("population %d: %w", pop, err)
	}
	return max(float64(loc.Volume())*mult, s.initialSize/2), nil
}

func (s *stemProliferation) orientDaughter(d *cell.Cell, rng *rand.Rand) {
	if d.Class().IsStem() {
		d.SetApicalAxis(s.daughterAxis(rng))
	}
}

func (s *stemProliferation) daughterAxis(rng *rand.Rand) r3.Vec {
	axis := s.m.cell.ApicalAxis()
	if s.apicalRuleset == ApicalGlobal {
		return axis
	}
	return geom.Rotate(axis, geom.ZAxis, s.apicalRotation.Next(rng))
}

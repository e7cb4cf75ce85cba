package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/config"
	"github.com/pthm-cable/tissue/geom"
	"github.com/pthm-cable/tissue/lattice"
)

// ErrSeeding is returned when the initial agents do not fit the lattice.
var ErrSeeding = errors.New("seeding")

// slots divides the lattice into cubes of edge size, leaving a one-voxel
// gap between neighbouring patches.
func slots(p *lattice.Potts, size int) []lattice.Voxel {
	step := size + 1
	depth := 1
	if p.ThreeD() {
		depth = p.Depth / step
	}
	var out []lattice.Voxel
	for z := 0; z < depth; z++ {
		for y := 0; y+size <= p.Height; y += step {
			for x := 0; x+size <= p.Width; x += step {
				out = append(out, lattice.Voxel{X: x, Y: y, Z: z * step})
			}
		}
	}
	return out
}

func patch(origin lattice.Voxel, side int, threeD bool) []lattice.Voxel {
	depth := 1
	if threeD {
		depth = side
	}
	voxels := make([]lattice.Voxel, 0, side*side*depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				voxels = append(voxels, origin.Add(lattice.Voxel{X: x, Y: y, Z: z}))
			}
		}
	}
	return voxels
}

// seed places every population's initial agents in randomly chosen slots.
func (s *Simulation) seed() error {
	threeD := s.potts.ThreeD()
	size, want := 0, 0
	for _, pc := range s.cfg.Populations {
		if pc.Init > 0 {
			size = max(size, config.PatchSide(pc.CriticalVolume, threeD))
			want += pc.Init
		}
	}
	if want == 0 {
		return nil
	}

	free := slots(s.potts, size)
	if len(free) < want {
		return fmt.Errorf("%w: %d agents, lattice holds %d patches of side %d", ErrSeeding, want, len(free), size)
	}
	s.rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	next := 0
	for _, id := range s.factory.IDs() {
		pc, _ := s.cfg.Population(id)
		for range pc.Init {
			if err := s.seedAgent(pc, free[next], threeD); err != nil {
				return err
			}
			next++
		}
	}
	slog.Info("seeded", "agents", next, "patch_side", size)
	return nil
}

func (s *Simulation) seedAgent(pc config.PopulationConfig, origin lattice.Voxel, threeD bool) error {
	p := s.factory.pops[pc.ID]
	loc := lattice.NewLocation(patch(origin, config.PatchSide(pc.CriticalVolume, threeD), threeD), threeD)

	rec := &cell.Container{
		ID:             s.NextID(),
		Pop:            pc.ID,
		State:          p.state,
		CriticalVolume: pc.CriticalVolume,
		CriticalHeight: pc.CriticalHeight,
	}
	if f := pc.CriticalNucleusFraction; f > 0 {
		rec.CriticalRegionVolumes = map[lattice.Region]float64{lattice.RegionNucleus: f * pc.CriticalVolume}
		loc.Distribute(lattice.RegionNucleus, int(math.Round(f*float64(loc.Volume()))))
	}

	c, err := s.factory.Convert(rec, loc, s.rng)
	if err != nil {
		return fmt.Errorf("seeding population %d: %w", pc.ID, err)
	}
	if c.Class().IsStem() {
		c.SetApicalAxis(geom.YAxis)
	}
	s.grid.AddObject(c)
	s.potts.Register(c)
	c.Reset(s.potts)
	c.Schedule(s.scheduler)
	s.lifetimes.Register(c.ID(), s.tick, c.Pop(), 0)
	return nil
}

package systems

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/tissue/lattice"
)

// RelaxSystem moves each registered location toward its target volume.
// Growing locations claim free lattice voxels next to their boundary,
// nearest the centroid first; shrinking locations release their outermost
// boundary voxels. The nucleus is then re-centred to its own target.
//
// This is a greedy stand-in for energy minimisation: it honours volume
// targets but not surface or adhesion terms.
type RelaxSystem struct {
	voxelsPerTick int
}

// NewRelaxSystem creates a system that moves at most voxelsPerTick voxels
// per location per tick.
func NewRelaxSystem(voxelsPerTick int) *RelaxSystem {
	return &RelaxSystem{voxelsPerTick: max(voxelsPerTick, 1)}
}

// Update relaxes every occupant of p and returns the number of voxels that
// changed owner.
func (s *RelaxSystem) Update(p *lattice.Potts) int {
	moved := 0
	for _, o := range p.Occupants() {
		moved += s.relax(p, o)
	}
	return moved
}

func (s *RelaxSystem) relax(p *lattice.Potts, o lattice.Occupant) int {
	loc := o.Location()
	delta := int(math.Round(o.TargetVolume())) - loc.Volume()

	var moved int
	switch {
	case delta > 0:
		moved = grow(p, o.ID(), loc, min(delta, s.voxelsPerTick))
	case delta < 0:
		moved = shrink(p, loc, min(-delta, s.voxelsPerTick, loc.Volume()-1))
	}

	if o.HasRegions() {
		nucleus := min(int(math.Round(o.TargetRegionVolume(lattice.RegionNucleus))), loc.Volume())
		if loc.RegionVolume(lattice.RegionNucleus) != nucleus {
			loc.Distribute(lattice.RegionNucleus, nucleus)
		}
	}
	return moved
}

func grow(p *lattice.Potts, id int, loc *lattice.Location, n int) int {
	seen := make(map[lattice.Voxel]bool)
	var free []lattice.Voxel
	for _, v := range loc.Boundary() {
		for _, nb := range p.Neighbors(v) {
			if !seen[nb] && p.ID(nb) == 0 {
				seen[nb] = true
				free = append(free, nb)
			}
		}
	}
	sortByDistance(free, loc.Centroid())

	n = min(n, len(free))
	for _, v := range free[:n] {
		loc.Add(v, lattice.RegionDefault)
		p.Set(v, id)
	}
	return n
}

func shrink(p *lattice.Potts, loc *lattice.Location, n int) int {
	if n <= 0 {
		return 0
	}
	boundary := loc.Boundary()
	sortByDistance(boundary, loc.Centroid())
	slices.Reverse(boundary)

	n = min(n, len(boundary))
	for _, v := range boundary[:n] {
		loc.Remove(v)
		p.Set(v, 0)
	}
	return n
}

// sortByDistance orders voxels by distance to c, breaking ties by
// position so runs are reproducible.
func sortByDistance(voxels []lattice.Voxel, c r3.Vec) {
	slices.SortStableFunc(voxels, func(a, b lattice.Voxel) int {
		da, db := r3.Norm2(r3.Sub(a.Vec(), c)), r3.Norm2(r3.Sub(b.Vec(), c))
		if d := cmp.Compare(da, db); d != 0 {
			return d
		}
		if d := cmp.Compare(a.Z, b.Z); d != 0 {
			return d
		}
		if d := cmp.Compare(a.Y, b.Y); d != 0 {
			return d
		}
		return cmp.Compare(a.X, b.X)
	})
}

package lattice

import (
	"slices"
)

// Occupant is an agent registered with the lattice.
type Occupant interface {
	ID() int
	Location() *Location
	TargetVolume() float64
	TargetRegionVolume(r Region) float64
	HasRegions() bool
}

// Potts is the shared id lattice. Each voxel holds the id of the agent
// occupying it, or 0 for medium.
type Potts struct {
	Width, Height, Depth int

	ids       []int
	occupants map[int]Occupant
}

// NewPotts creates an empty lattice. A depth of 1 gives a 2D lattice.
func NewPotts(width, height, depth int) *Potts {
	return &Potts{
		Width:     width,
		Height:    height,
		Depth:     max(depth, 1),
		ids:       make([]int, width*height*max(depth, 1)),
		occupants: make(map[int]Occupant),
	}
}

// ThreeD reports whether the lattice has more than one layer.
func (p *Potts) ThreeD() bool { return p.Depth > 1 }

// In reports whether v lies inside the lattice.
func (p *Potts) In(v Voxel) bool {
	return v.X >= 0 && v.X < p.Width && v.Y >= 0 && v.Y < p.Height && v.Z >= 0 && v.Z < p.Depth
}

func (p *Potts) index(v Voxel) int {
	return (v.Z*p.Height+v.Y)*p.Width + v.X
}

// ID returns the id at v. Voxels outside the lattice read as -1.
func (p *Potts) ID(v Voxel) int {
	if !p.In(v) {
		return -1
	}
	return p.ids[p.index(v)]
}

// Set writes id at v. Writes outside the lattice are ignored.
func (p *Potts) Set(v Voxel, id int) {
	if p.In(v) {
		p.ids[p.index(v)] = id
	}
}

// Neighbors returns the in-lattice neighbours of v.
func (p *Potts) Neighbors(v Voxel) []Voxel {
	var out []Voxel
	for _, d := range neighborOffsets(p.ThreeD()) {
		if n := v.Add(d); p.In(n) {
			out = append(out, n)
		}
	}
	return out
}

// UniqueIDs returns the sorted, distinct ids adjacent to v that differ from
// the id at v. Medium (0) is included when adjacent.
func (p *Potts) UniqueIDs(v Voxel) []int {
	self := p.ID(v)
	var ids []int
	for _, n := range p.Neighbors(v) {
		if id := p.ID(n); id != self && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Register adds o to the set of agents the lattice relaxes.
func (p *Potts) Register(o Occupant) {
	p.occupants[o.ID()] = o
}

// Deregister removes o.
func (p *Potts) Deregister(o Occupant) {
	if cur, ok := p.occupants[o.ID()]; ok && cur == o {
		delete(p.occupants, o.ID())
	}
}

// Occupant returns the registered agent with id.
func (p *Potts) Occupant(id int) (Occupant, bool) {
	o, ok := p.occupants[id]
	return o, ok
}

// Occupants returns registered agents ordered by id.
func (p *Potts) Occupants() []Occupant {
	out := make([]Occupant, 0, len(p.occupants))
	for _, o := range p.occupants {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Occupant) int { return a.ID() - b.ID() })
	return out
}

// Count returns the number of voxels holding id.
func (p *Potts) Count(id int) int {
	n := 0
	for _, v := range p.ids {
		if v == id {
			n++
		}
	}
	return n
}

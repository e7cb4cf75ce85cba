package lattice

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/tissue/geom"
)

// ErrDegenerateSplit is returned when a location cannot be divided as
// requested, e.g. a plane that leaves every voxel on one side.
var ErrDegenerateSplit = errors.New("degenerate split")

// balanceDifference is the relative volume difference a default bisection
// is allowed to leave between its halves.
const balanceDifference = 0.05

// Location is the set of voxels owned by one agent, each tagged with the
// region it belongs to. A *Location is a stable handle: SwapVoxels
// exchanges contents between handles, never the handles themselves.
type Location struct {
	voxels map[Voxel]Region
	threeD bool
}

// NewLocation creates a location holding voxels in the default region.
func NewLocation(voxels []Voxel, threeD bool) *Location {
	l := &Location{voxels: make(map[Voxel]Region, len(voxels)), threeD: threeD}
	for _, v := range voxels {
		l.voxels[v] = RegionDefault
	}
	return l
}

// ThreeD reports whether the location uses a 3D neighbourhood.
func (l *Location) ThreeD() bool { return l.threeD }

// Volume returns the number of voxels.
func (l *Location) Volume() int { return len(l.voxels) }

// RegionVolume returns the number of voxels tagged with r.
func (l *Location) RegionVolume(r Region) int {
	n := 0
	for _, tag := range l.voxels {
		if tag == r {
			n++
		}
	}
	return n
}

// Has reports whether v belongs to the location.
func (l *Location) Has(v Voxel) bool {
	_, ok := l.voxels[v]
	return ok
}

// RegionOf returns the region of v.
func (l *Location) RegionOf(v Voxel) (Region, bool) {
	r, ok := l.voxels[v]
	return r, ok
}

// Add adds v to the location, or retags it if already present.
func (l *Location) Add(v Voxel, r Region) {
	l.voxels[v] = r
}

// Remove removes v from the location.
func (l *Location) Remove(v Voxel) {
	delete(l.voxels, v)
}

// Voxels returns the voxels in z, y, x order.
func (l *Location) Voxels() []Voxel {
	out := make([]Voxel, 0, len(l.voxels))
	for v := range l.voxels {
		out = append(out, v)
	}
	slices.SortFunc(out, compareVoxels)
	return out
}

// RegionVoxels returns the voxels tagged with r in z, y, x order.
func (l *Location) RegionVoxels(r Region) []Voxel {
	var out []Voxel
	for v, tag := range l.voxels {
		if tag == r {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compareVoxels)
	return out
}

// Centroid returns the mean voxel position. An empty location has a zero
// centroid.
func (l *Location) Centroid() r3.Vec {
	return centroid(l.Voxels())
}

func centroid(voxels []Voxel) r3.Vec {
	n := len(voxels)
	if n == 0 {
		return r3.Vec{}
	}
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, v := range voxels {
		xs[i], ys[i], zs[i] = float64(v.X), float64(v.Y), float64(v.Z)
	}
	fn := float64(n)
	return r3.Vec{X: floats.Sum(xs) / fn, Y: floats.Sum(ys) / fn, Z: floats.Sum(zs) / fn}
}

// Center returns the voxel closest to the centroid.
func (l *Location) Center() Voxel {
	voxels := l.Voxels()
	if len(voxels) == 0 {
		return Voxel{}
	}
	c := l.Centroid()
	best, bestDist := voxels[0], math.Inf(1)
	for _, v := range voxels {
		if d := r3.Norm2(r3.Sub(v.Vec(), c)); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// Neighbors returns the lattice neighbours of v, inside or outside the
// location.
func (l *Location) Neighbors(v Voxel) []Voxel {
	offs := neighborOffsets(l.threeD)
	out := make([]Voxel, len(offs))
	for i, d := range offs {
		out[i] = v.Add(d)
	}
	return out
}

// Boundary returns the voxels with at least one neighbour outside the
// location.
func (l *Location) Boundary() []Voxel {
	var out []Voxel
	for _, v := range l.Voxels() {
		for _, n := range l.Neighbors(v) {
			if !l.Has(n) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Update writes id into the lattice at every voxel of the location.
func (l *Location) Update(id int, p *Potts) {
	for v := range l.voxels {
		p.Set(v, id)
	}
}

// Clear resets the lattice at every voxel of the location to empty.
func (l *Location) Clear(p *Potts) {
	for v := range l.voxels {
		p.Set(v, 0)
	}
}

// Distribute retags the location so that region covers the target voxels
// nearest the center; all other voxels return to the default region.
func (l *Location) Distribute(region Region, target int) {
	for v := range l.voxels {
		l.voxels[v] = RegionDefault
	}
	if target <= 0 || region == RegionDefault {
		return
	}
	c := l.Center().Vec()
	voxels := l.Voxels()
	slices.SortStableFunc(voxels, func(a, b Voxel) int {
		da, db := r3.Norm2(r3.Sub(a.Vec(), c)), r3.Norm2(r3.Sub(b.Vec(), c))
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	for _, v := range voxels[:min(target, len(voxels))] {
		l.voxels[v] = region
	}
}

// Split partitions the location by plane. Voxels on the negative side form
// one half and the rest form the other; each half is reduced to its largest
// connected component, with stranded voxels handed to the other half. The
// receiver keeps one half, chosen at random, and the other is returned as
// a new Location.
func (l *Location) Split(rng *rand.Rand, plane geom.Plane) (*Location, error) {
	if l.Volume() < 2 {
		return nil, fmt.Errorf("%w: volume %d", ErrDegenerateSplit, l.Volume())
	}
	a, b := partition(l.Voxels(), plane)
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("%w: plane through %v leaves one side empty", ErrDegenerateSplit, plane.Point)
	}
	a, b = connectVoxels(a, b, l.threeD)
	return l.separate(a, b, rng), nil
}

// Bisect splits the location through its center, perpendicular to its
// longest diameter, and balances the halves to within balanceDifference.
func (l *Location) Bisect(rng *rand.Rand) (*Location, error) {
	if l.Volume() < 2 {
		return nil, fmt.Errorf("%w: volume %d", ErrDegenerateSplit, l.Volume())
	}
	plane := geom.NewPlane(l.Center().Vec(), l.longestDirection(rng))
	a, b := partition(l.Voxels(), plane)
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("%w: bisection leaves one side empty", ErrDegenerateSplit)
	}
	a, b = balanceVoxels(a, b, l.threeD, rng)
	a, b = connectVoxels(a, b, l.threeD)
	return l.separate(a, b, rng), nil
}

// SwapVoxels exchanges the contents of a and b. Both handles stay valid.
func SwapVoxels(a, b *Location) {
	a.voxels, b.voxels = b.voxels, a.voxels
	a.threeD, b.threeD = b.threeD, a.threeD
}

// Absorb moves every voxel of other into l, keeping region tags, and
// leaves other empty.
func (l *Location) Absorb(other *Location) {
	for v, r := range other.voxels {
		l.voxels[v] = r
	}
	other.voxels = make(map[Voxel]Region)
}

// OffsetInApicalFrame returns the voxel found by walking percentage
// offsets through the location in a frame aligned with axis: offsets[1]
// selects a band of voxels along the axis, offsets[0] a voxel across it.
func (l *Location) OffsetInApicalFrame(offsets [2]float64, axis r3.Vec) (Voxel, error) {
	if l.Volume() == 0 {
		return Voxel{}, fmt.Errorf("%w: empty location", ErrDegenerateSplit)
	}
	yAxis := geom.Unit(r3.Vec{X: axis.X, Y: axis.Y})
	if yAxis == (r3.Vec{}) {
		return Voxel{}, fmt.Errorf("%w: apical axis %v has no in-plane component", ErrDegenerateSplit, axis)
	}
	xAxis := r3.Vec{X: yAxis.Y, Y: -yAxis.X}

	voxels := l.Voxels()
	keys := make([]float64, len(voxels))
	for i, v := range voxels {
		keys[i] = math.Round(r3.Dot(v.Vec(), yAxis))
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	band := sorted[percentIndex(offsets[1], len(sorted))]

	var row []Voxel
	for i, v := range voxels {
		if keys[i] == band {
			row = append(row, v)
		}
	}
	slices.SortStableFunc(row, func(a, b Voxel) int {
		pa, pb := r3.Dot(a.Vec(), xAxis), r3.Dot(b.Vec(), xAxis)
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		}
		return 0
	})
	return row[percentIndex(offsets[0], len(row))], nil
}

func percentIndex(pct float64, n int) int {
	i := int(pct / 100 * float64(n))
	return max(0, min(n-1, i))
}

// longestDirection returns the lattice direction with the largest
// diameter. Ties are broken at random.
func (l *Location) longestDirection(rng *rand.Rand) r3.Vec {
	dirs := []r3.Vec{{X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}}
	if l.threeD {
		dirs = append(dirs, r3.Vec{Z: 1}, r3.Vec{X: 1, Z: 1}, r3.Vec{X: 1, Z: -1}, r3.Vec{Y: 1, Z: 1}, r3.Vec{Y: 1, Z: -1})
	}
	voxels := l.Voxels()
	var best []r3.Vec
	bestDiam := -1.0
	for _, d := range dirs {
		d = geom.Unit(d)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range voxels {
			p := r3.Dot(v.Vec(), d)
			lo, hi = math.Min(lo, p), math.Max(hi, p)
		}
		diam := hi - lo
		switch {
		case diam > bestDiam+1e-9:
			best, bestDiam = []r3.Vec{d}, diam
		case math.Abs(diam-bestDiam) <= 1e-9:
			best = append(best, d)
		}
	}
	return best[rng.IntN(len(best))]
}

// separate keeps one of a and b in the receiver and returns the other.
// Nuclear volume is shared between the halves in proportion to their size.
func (l *Location) separate(a, b []Voxel, rng *rand.Rand) *Location {
	nucleus := l.RegionVolume(RegionNucleus)
	if rng.Float64() >= 0.5 {
		a, b = b, a
	}
	kept := make(map[Voxel]Region, len(a))
	for _, v := range a {
		kept[v] = l.voxels[v]
	}
	other := &Location{voxels: make(map[Voxel]Region, len(b)), threeD: l.threeD}
	for _, v := range b {
		other.voxels[v] = l.voxels[v]
	}
	l.voxels = kept

	if nucleus > 0 {
		total := len(a) + len(b)
		na := int(math.Round(float64(nucleus) * float64(len(a)) / float64(total)))
		l.Distribute(RegionNucleus, na)
		other.Distribute(RegionNucleus, nucleus-na)
	}
	return other
}

// partition assigns voxels on the negative side of plane to a and the rest to b.
func partition(voxels []Voxel, plane geom.Plane) (a, b []Voxel) {
	for _, v := range voxels {
		if plane.SignedDistance(v.Vec()) < 0 {
			a = append(a, v)
		} else {
			b = append(b, v)
		}
	}
	return a, b
}

// connectVoxels reduces each half to its largest connected component,
// moving the remainder to the other half.
func connectVoxels(a, b []Voxel, threeD bool) ([]Voxel, []Voxel) {
	keep, stray := largestComponent(a, threeD)
	a, b = keep, append(b, stray...)
	keep, stray = largestComponent(b, threeD)
	b, a = keep, append(a, stray...)
	slices.SortFunc(a, compareVoxels)
	slices.SortFunc(b, compareVoxels)
	return a, b
}

// largestComponent splits voxels into its largest connected component and
// everything else.
func largestComponent(voxels []Voxel, threeD bool) (keep, rest []Voxel) {
	in := make(map[Voxel]bool, len(voxels))
	for _, v := range voxels {
		in[v] = true
	}
	seen := make(map[Voxel]bool, len(voxels))
	var comps [][]Voxel
	for _, start := range voxels {
		if seen[start] {
			continue
		}
		comp := []Voxel{start}
		seen[start] = true
		for i := 0; i < len(comp); i++ {
			for _, d := range neighborOffsets(threeD) {
				n := comp[i].Add(d)
				if in[n] && !seen[n] {
					seen[n] = true
					comp = append(comp, n)
				}
			}
		}
		comps = append(comps, comp)
	}
	if len(comps) == 0 {
		return nil, nil
	}
	best := 0
	for i, c := range comps {
		if len(c) > len(comps[best]) {
			best = i
		}
	}
	for i, c := range comps {
		if i == best {
			keep = c
		} else {
			rest = append(rest, c...)
		}
	}
	return keep, rest
}

// balanceVoxels moves boundary voxels from the larger half to the smaller
// until their sizes differ by at most balanceDifference.
func balanceVoxels(a, b []Voxel, threeD bool, rng *rand.Rand) ([]Voxel, []Voxel) {
	inA, inB := toSet(a), toSet(b)
	for {
		na, nb := len(inA), len(inB)
		if math.Abs(float64(na-nb))/float64(na+nb) <= balanceDifference {
			break
		}
		big, small := inA, inB
		if nb > na {
			big, small = inB, inA
		}
		var candidates []Voxel
		for _, v := range sortedSet(big) {
			for _, d := range neighborOffsets(threeD) {
				if small[v.Add(d)] {
					candidates = append(candidates, v)
					break
				}
			}
		}
		if len(candidates) == 0 {
			break
		}
		v := candidates[rng.IntN(len(candidates))]
		delete(big, v)
		small[v] = true
	}
	return sortedSet(inA), sortedSet(inB)
}

func toSet(voxels []Voxel) map[Voxel]bool {
	s := make(map[Voxel]bool, len(voxels))
	for _, v := range voxels {
		s[v] = true
	}
	return s
}

func sortedSet(s map[Voxel]bool) []Voxel {
	out := make([]Voxel, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.SortFunc(out, compareVoxels)
	return out
}

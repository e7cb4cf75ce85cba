// Package lattice models the voxel lattice agents occupy: per-agent
// Locations and the shared Potts id grid.
package lattice

import (
	"cmp"

	"gonum.org/v1/gonum/spatial/r3"
)

// Voxel is an integer lattice coordinate.
type Voxel struct {
	X, Y, Z int
}

// Vec returns the voxel as a vector.
func (v Voxel) Vec() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Add returns v shifted by d.
func (v Voxel) Add(d Voxel) Voxel {
	return Voxel{v.X + d.X, v.Y + d.Y, v.Z + d.Z}
}

// compareVoxels orders voxels by z, then y, then x.
func compareVoxels(a, b Voxel) int {
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

var (
	offsets2D = []Voxel{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}
	offsets3D = []Voxel{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
)

// neighborOffsets returns the von Neumann neighbourhood offsets.
func neighborOffsets(threeD bool) []Voxel {
	if threeD {
		return offsets3D
	}
	return offsets2D
}

// Region tags the part of a Location a voxel belongs to.
type Region uint8

const (
	RegionDefault Region = iota
	RegionNucleus
)

func (r Region) String() string {
	switch r {
	case RegionDefault:
		return "DEFAULT"
	case RegionNucleus:
		return "NUCLEUS"
	default:
		return "UNDEFINED"
	}
}

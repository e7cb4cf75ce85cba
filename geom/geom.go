// Package geom holds the small amount of 3D geometry used to parameterize
// divisions: planes, fixed reference axes and rotations.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Reference axes.
var (
	XAxis = r3.Vec{X: 1}
	YAxis = r3.Vec{Y: 1}
	ZAxis = r3.Vec{Z: 1}
)

// Plane is an immutable reference point plus unit normal.
type Plane struct {
	Point  r3.Vec
	Normal r3.Vec
}

// NewPlane normalizes normal. A zero normal yields a zero Plane normal,
// against which every point has distance zero.
func NewPlane(point, normal r3.Vec) Plane {
	return Plane{Point: point, Normal: Unit(normal)}
}

// SignedDistance returns the distance from the plane to p, positive on the
// side the normal points to.
func (pl Plane) SignedDistance(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, pl.Point), pl.Normal)
}

// Unit returns v scaled to unit length, or the zero vector for zero input.
func Unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// Rotate rotates v about axis by degrees, counterclockwise looking down the
// axis.
func Rotate(v, axis r3.Vec, degrees float64) r3.Vec {
	axis = Unit(axis)
	if axis == (r3.Vec{}) || degrees == 0 {
		return v
	}
	rot := r3.NewRotation(degrees*math.Pi/180, axis)
	return Clean(rot.Rotate(v))
}

// AngleBetween returns the unsigned angle between a and b in degrees.
func AngleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	c := r3.Dot(a, b) / (na * nb)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// Clean zeroes components that are within rounding noise of zero.
func Clean(v r3.Vec) r3.Vec {
	const eps = 1e-12
	if math.Abs(v.X) < eps {
		v.X = 0
	}
	if math.Abs(v.Y) < eps {
		v.Y = 0
	}
	if math.Abs(v.Z) < eps {
		v.Z = 0
	}
	return v
}

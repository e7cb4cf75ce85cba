package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func vecNear(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name    string
		v, axis r3.Vec
		degrees float64
		want    r3.Vec
	}{
		{"y about z by 90", YAxis, ZAxis, 90, r3.Vec{X: -1}},
		{"y about z by -90", YAxis, ZAxis, -90, r3.Vec{X: 1}},
		{"x about z by 180", XAxis, ZAxis, 180, r3.Vec{X: -1}},
		{"zero angle", r3.Vec{X: 1, Y: 2}, ZAxis, 0, r3.Vec{X: 1, Y: 2}},
		{"axis parallel", ZAxis, ZAxis, 37, ZAxis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotate(tt.v, tt.axis, tt.degrees)
			if !vecNear(got, tt.want, 1e-9) {
				t.Errorf("Rotate(%v, %v, %v) = %v, want %v", tt.v, tt.axis, tt.degrees, got, tt.want)
			}
		})
	}
}

func TestPlaneSignedDistance(t *testing.T) {
	pl := NewPlane(r3.Vec{X: 2, Y: 2}, r3.Vec{X: 3})
	if pl.Normal != XAxis {
		t.Fatalf("Normal = %v, want unit x", pl.Normal)
	}
	if d := pl.SignedDistance(r3.Vec{X: 5, Y: -1}); d != 3 {
		t.Errorf("SignedDistance = %v, want 3", d)
	}
	if d := pl.SignedDistance(r3.Vec{X: 0, Y: 7}); d != -2 {
		t.Errorf("SignedDistance = %v, want -2", d)
	}
}

func TestAngleBetween(t *testing.T) {
	if got := AngleBetween(XAxis, YAxis); math.Abs(got-90) > 1e-9 {
		t.Errorf("AngleBetween(x, y) = %v, want 90", got)
	}
	if got := AngleBetween(XAxis, r3.Vec{X: -2}); math.Abs(got-180) > 1e-9 {
		t.Errorf("AngleBetween(x, -x) = %v, want 180", got)
	}
}

package module

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/tissue/geom"
	"github.com/pthm-cable/tissue/lattice"
)

// Ruleset names how a division decides whether the daughter stays a stem
// cell.
type Ruleset string

const (
	// RulesetOrientation keeps stem identity when the split plane's normal
	// lies closer to perpendicular than parallel to the apical axis.
	RulesetOrientation Ruleset = "orientation"
	// RulesetVolume keeps stem identity when the halves' volumes are within
	// the equality range.
	RulesetVolume Ruleset = "volume"
	// RulesetLocation keeps stem identity when the halves' centroids project
	// onto the apical axis within the equality range.
	RulesetLocation Ruleset = "location"
)

const locationTolerance = 1e-8

// FateAssigner decides the fate of the two halves of a stem division.
type FateAssigner struct {
	Lineage       Lineage
	Ruleset       Ruleset
	EqualityRange float64
}

// NewFateAssigner validates the ruleset name.
func NewFateAssigner(lineage Lineage, ruleset string, equalityRange float64) (FateAssigner, error) {
	switch Ruleset(ruleset) {
	case RulesetOrientation, RulesetVolume, RulesetLocation:
	default:
		return FateAssigner{}, fmt.Errorf("%w: unknown differentiation ruleset %q", ErrIllegalConfiguration, ruleset)
	}
	return FateAssigner{Lineage: lineage, Ruleset: Ruleset(ruleset), EqualityRange: equalityRange}, nil
}

// DaughterStem reports whether both halves keep stem identity. WT
// divisions are always asymmetric.
func (f FateAssigner) DaughterStem(a, b *lattice.Location, plane geom.Plane, apical r3.Vec) bool {
	if f.Lineage.Name == LineageWT.Name {
		return false
	}
	switch f.Ruleset {
	case RulesetOrientation:
		angle := geom.AngleBetween(plane.Normal, apical)
		return angle > 45 && angle < 135
	case RulesetVolume:
		return math.Abs(float64(a.Volume()-b.Volume())) < f.EqualityRange
	default:
		axis := geom.Unit(apical)
		pa := r3.Dot(a.Centroid(), axis)
		pb := r3.Dot(b.Centroid(), axis)
		return math.Abs(pa-pb)-f.EqualityRange <= locationTolerance
	}
}

// DifferentiatedLocation returns which half becomes the differentiated
// daughter: the smaller one under the volume ruleset, otherwise the basal
// one, whose centroid lies further along the apical axis. Ties go to b.
func (f FateAssigner) DifferentiatedLocation(a, b *lattice.Location, apical r3.Vec) *lattice.Location {
	if f.Ruleset == RulesetVolume {
		if a.Volume() < b.Volume() {
			return a
		}
		return b
	}
	axis := geom.Unit(apical)
	if r3.Dot(a.Centroid(), axis) > r3.Dot(b.Centroid(), axis) {
		return a
	}
	return b
}

package module

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/geom"
	"github.com/pthm-cable/tissue/params"
)

// Lineage holds the division geometry of a stem lineage.
type Lineage struct {
	Name string
	// SplitOffset locates the split voxel in the apical frame, in percent
	// across and along the apical axis.
	SplitOffset [2]float64
	// BaseRotation is the angle in degrees, about z, from the apical axis
	// to the split plane's normal.
	BaseRotation float64
	// DaughterProportion is the differentiated daughter's share of the
	// parent's division size.
	DaughterProportion float64
}

var (
	LineageWT     = Lineage{Name: "WT", SplitOffset: [2]float64{50, 80}, BaseRotation: 0, DaughterProportion: 0.25}
	LineageMUDMUT = Lineage{Name: "MUDMUT", SplitOffset: [2]float64{50, 50}, BaseRotation: 90, DaughterProportion: 0.25}
)

// mudThreshold is the rotational offset, in degrees, at and above which a
// MUDMUT cell uses its own plane instead of the WT one.
const mudThreshold = 45

// LineageFor returns the lineage of a stem class.
func LineageFor(class cell.Class) (Lineage, error) {
	switch class {
	case cell.ClassStemWT:
		return LineageWT, nil
	case cell.ClassStemMUDMUT:
		return LineageMUDMUT, nil
	}
	return Lineage{}, fmt.Errorf("%w: class %q has no stem lineage", ErrIllegalConfiguration, class)
}

// DivisionGeometry chooses the plane a stem cell divides along.
type DivisionGeometry struct {
	Lineage  Lineage
	Rotation params.Distribution
}

// NewDivisionGeometry requires a normal rotation distribution.
func NewDivisionGeometry(lineage Lineage, rotation params.Distribution) (DivisionGeometry, error) {
	if rotation == nil || rotation.Family() != params.FamilyNormal {
		return DivisionGeometry{}, fmt.Errorf("%w: division rotation must be a NORMAL distribution", ErrIllegalConfiguration)
	}
	return DivisionGeometry{Lineage: lineage, Rotation: rotation}, nil
}

// Plane samples a rotational offset and returns the split plane for c.
// WT cells split through the WT split voxel with the normal rotated from
// the apical axis by the base rotation plus the offset. MUDMUT cells do
// the same while the offset is under the threshold and otherwise split
// through the 50/50 voxel along a plane orthogonal to the WT one.
func (g DivisionGeometry) Plane(c *cell.Cell, rng *rand.Rand) (geom.Plane, error) {
	offset := g.Rotation.Next(rng)
	if g.Lineage.Name == LineageMUDMUT.Name && math.Abs(offset) >= mudThreshold {
		return planeInApicalFrame(c, LineageMUDMUT.SplitOffset, LineageMUDMUT.BaseRotation)
	}
	return planeInApicalFrame(c, LineageWT.SplitOffset, LineageWT.BaseRotation+offset)
}

// planeInApicalFrame rotates the apical axis into the plane normal and
// walks the split offsets in the frame of that normal.
func planeInApicalFrame(c *cell.Cell, offsets [2]float64, rotation float64) (geom.Plane, error) {
	normal := geom.Rotate(c.ApicalAxis(), geom.ZAxis, rotation)
	v, err := c.Location().OffsetInApicalFrame(offsets, normal)
	if err != nil {
		return geom.Plane{}, fmt.Errorf("split voxel for cell %d: %w", c.ID(), err)
	}
	return geom.NewPlane(v.Vec(), normal), nil
}
